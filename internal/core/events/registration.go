package events

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"

	"github.com/carlmjohnson/versioninfo"
)

const (
	PRODUCT_NAME_GEN1 = "Shelly 1PM"
	PRODUCT_NAME_GEN2 = "Shelly Plus 1PM"

	CONNECTION_GEN1 = "Shelly 1PM HTTP JSON service"
	CONNECTION_GEN2 = "Shelly Plus 1PM HTTP JSON service"

	// id assigned by Victron Support, same one the SDM630 service uses
	PRODUCT_ID = 0xFFFF
)

func ProductName(variant string) string {
	if variant == shelly.VariantGen2 {
		return PRODUCT_NAME_GEN2
	}
	return PRODUCT_NAME_GEN1
}

func ConnectionName(variant string) string {
	if variant == shelly.VariantGen2 {
		return CONNECTION_GEN2
	}
	return CONNECTION_GEN1
}

// RegistrationPaths builds the full path tree of the published service:
// management and identity paths first, then the measurement paths with
// their initial values. Measurement paths accept bus writes, the rest do
// not.
func RegistrationPaths(deviceInstance int, customName, serial, variant string) []domain.PathSpec {

	paths := []domain.PathSpec{
		{Path: domain.PathMgmtProcessName, Initial: filepath.Base(os.Args[0])},
		{Path: domain.PathMgmtProcessVersion, Initial: fmt.Sprintf("%s running on %s", versioninfo.Short(), runtime.Version())},
		{Path: domain.PathMgmtConnection, Initial: ConnectionName(variant)},
		{Path: domain.PathDeviceInstance, Initial: deviceInstance},
		{Path: domain.PathProductId, Initial: PRODUCT_ID},
		{Path: domain.PathProductName, Initial: ProductName(variant)},
		{Path: domain.PathCustomName, Initial: customName},
		{Path: domain.PathConnected, Initial: 1},
		{Path: domain.PathLatency, Initial: nil},
		{Path: domain.PathFirmwareVersion, Initial: 0.1},
		{Path: domain.PathHardwareVersion, Initial: 0},
		{Path: domain.PathPosition, Initial: 0},
		{Path: domain.PathSerial, Initial: serial},
		// dummy path so VRM detects the service as a PV inverter
		{Path: domain.PathStatusCode, Initial: 0},
		{Path: domain.PathUpdateIndex, Initial: 0},
	}

	measurements := []domain.PathSpec{
		{Path: domain.PathAcEnergyForward, Initial: nil, Format: domain.FormatKWh},
		{Path: domain.PathAcPower, Initial: 0.0, Format: domain.FormatWatt},
		{Path: domain.PathAcCurrent, Initial: 0.0, Format: domain.FormatAmp},
		{Path: domain.PathAcVoltage, Initial: 0.0, Format: domain.FormatVolt},
	}
	for _, phase := range domain.Phases() {
		measurements = append(measurements,
			domain.PathSpec{Path: domain.PhaseVoltagePath(phase), Initial: 0.0, Format: domain.FormatVolt},
			domain.PathSpec{Path: domain.PhaseCurrentPath(phase), Initial: 0.0, Format: domain.FormatAmp},
			domain.PathSpec{Path: domain.PhasePowerPath(phase), Initial: 0.0, Format: domain.FormatWatt},
			domain.PathSpec{Path: domain.PhaseEnergyForwardPath(phase), Initial: nil, Format: domain.FormatKWh},
		)
	}
	for i := range measurements {
		measurements[i].Writable = true
	}

	return append(paths, measurements...)
}
