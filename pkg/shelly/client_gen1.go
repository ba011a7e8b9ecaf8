package shelly

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// gen1Status is the /status document, reduced to the fields the bridge
// consumes. First-generation devices report energy in watt-minutes and do
// not measure voltage, so voltage is assumed nominal and current derived.
type gen1Status struct {
	Mac    string `json:"mac"`
	Meters []struct {
		Power float64 `json:"power"`
		Total float64 `json:"total"`
	} `json:"meters"`
}

type Gen1MeterReader struct {
	client *Client
	input  int
}

func CreateGen1MeterReader(access AccessConfig, meterInput int, timeout time.Duration,
	logger *zap.Logger, instrumentation *HTTPInstrument) (MeterReader, error) {
	// instrumentation
	var inst []HTTPInstrument
	logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "meter")).With(zap.String("variant", VariantGen1)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	client, err := NewClient(access, timeout, inst)
	if err != nil {
		return nil, err
	}
	return &Gen1MeterReader{
		client: client,
		input:  meterInput,
	}, nil
}

func (reader *Gen1MeterReader) GetInfo() (*DeviceInfo, error) {
	var status gen1Status
	if err := reader.client.GetJSON("status", nil, &status); err != nil {
		return nil, err
	}
	return &DeviceInfo{
		Serial:  status.Mac,
		Variant: VariantGen1,
	}, nil
}

func (reader *Gen1MeterReader) GetMeterSnapshot() (*MeterSnapshot, error) {
	var status gen1Status
	if err := reader.client.GetJSON("status", nil, &status); err != nil {
		return nil, err
	}
	if reader.input < 0 || reader.input >= len(status.Meters) {
		return nil, &DecodeError{
			Endpoint: "status",
			Err:      fmt.Errorf("meter input %d not present (%d meters)", reader.input, len(status.Meters)),
		}
	}
	meter := status.Meters[reader.input]

	return &MeterSnapshot{
		PowerWatt:   meter.Power,
		EnergyTotal: meter.Total,
		EnergyUnit:  WattMinutes,
		VoltageVolt: NominalGridVoltage,
		CurrentAmp:  currentFromPower(meter.Power, NominalGridVoltage),
	}, nil
}
