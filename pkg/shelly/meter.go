package shelly

import (
	"time"

	"go.uber.org/zap"
)

// device variants
const (
	VariantGen1 = "shelly1pm"
	VariantGen2 = "shellyplus1pm"
)

// NominalGridVoltage is assumed for variants that do not measure voltage.
const NominalGridVoltage float64 = 230

// EnergyUnit is the unit of a device's cumulative energy counter.
type EnergyUnit int

const (
	WattMinutes EnergyUnit = iota + 1
	WattHours
)

type DeviceInfo struct {
	Serial  string
	Variant string
}

// MeterSnapshot is one reading of the device's meter channel, in the
// device's native units.
type MeterSnapshot struct {
	PowerWatt   float64
	EnergyTotal float64
	EnergyUnit  EnergyUnit
	VoltageVolt float64
	CurrentAmp  float64
}

// EnergyForwardKWh converts the cumulative counter to kWh.
func (s MeterSnapshot) EnergyForwardKWh() float64 {
	switch s.EnergyUnit {
	case WattMinutes:
		return s.EnergyTotal / 1000 / 60
	case WattHours:
		return s.EnergyTotal / 1000
	default:
		return 0
	}
}

type MeterReader interface {
	GetInfo() (*DeviceInfo, error)
	GetMeterSnapshot() (*MeterSnapshot, error)
}

func CreateMeterReader(variant string, access AccessConfig, meterInput int, timeout time.Duration,
	logger *zap.Logger, instrumentation *HTTPInstrument) (MeterReader, error) {
	switch variant {
	case VariantGen1:
		return CreateGen1MeterReader(access, meterInput, timeout, logger, instrumentation)
	case VariantGen2:
		return CreateGen2MeterReader(access, meterInput, timeout, logger, instrumentation)
	default:
		return nil, &UnsupportedVariantError{Variant: variant}
	}
}

func traceLoggerInstrumentation(logger *zap.Logger) *HTTPInstrument {
	return &HTTPInstrument{
		RecordTime: func(path string, requestTime time.Duration) {
			logger.Debug("device request", zap.String("path", path), zap.Int64("millis", requestTime.Milliseconds()))
		},
	}
}

func currentFromPower(powerWatt float64, voltageVolt float64) float64 {
	if voltageVolt == 0 {
		return 0
	}
	return powerWatt / voltageVolt
}
