package domain

import "fmt"

// Measurement and device paths of the virtual inverter service.
const (
	PathAcPower         = "/Ac/Power"
	PathAcCurrent       = "/Ac/Current"
	PathAcVoltage       = "/Ac/Voltage"
	PathAcEnergyForward = "/Ac/Energy/Forward"

	PathMgmtProcessName    = "/Mgmt/ProcessName"
	PathMgmtProcessVersion = "/Mgmt/ProcessVersion"
	PathMgmtConnection     = "/Mgmt/Connection"
	PathDeviceInstance     = "/DeviceInstance"
	PathProductId          = "/ProductId"
	PathProductName        = "/ProductName"
	PathCustomName         = "/CustomName"
	PathConnected          = "/Connected"
	PathLatency            = "/Latency"
	PathFirmwareVersion    = "/FirmwareVersion"
	PathHardwareVersion    = "/HardwareVersion"
	PathPosition           = "/Position"
	PathSerial             = "/Serial"
	PathUpdateIndex        = "/UpdateIndex"
	PathStatusCode         = "/StatusCode"
)

func PhaseVoltagePath(p Phase) string {
	return fmt.Sprintf("/Ac/%s/Voltage", p)
}

func PhaseCurrentPath(p Phase) string {
	return fmt.Sprintf("/Ac/%s/Current", p)
}

func PhasePowerPath(p Phase) string {
	return fmt.Sprintf("/Ac/%s/Power", p)
}

func PhaseEnergyForwardPath(p Phase) string {
	return fmt.Sprintf("/Ac/%s/Energy/Forward", p)
}

// TextFormat selects the human readable rendering of a path value.
type TextFormat int

const (
	FormatNone TextFormat = iota
	FormatKWh
	FormatAmp
	FormatWatt
	FormatVolt
)

// FormatText renders a value the way the bus displays it. Values without
// a unit format render with plain %v.
func FormatText(format TextFormat, value any) string {
	if value == nil {
		return ""
	}
	f, isFloat := asFloat(value)
	if !isFloat {
		return fmt.Sprintf("%v", value)
	}
	switch format {
	case FormatKWh:
		return fmt.Sprintf("%.2fKWh", f)
	case FormatAmp:
		return fmt.Sprintf("%.1fA", f)
	case FormatWatt:
		return fmt.Sprintf("%.1fW", f)
	case FormatVolt:
		return fmt.Sprintf("%.1fV", f)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

// PathSpec describes one path of the published service: its initial value,
// text rendering and whether bus writes to it are accepted.
type PathSpec struct {
	Path     string
	Initial  any
	Format   TextFormat
	Writable bool
}
