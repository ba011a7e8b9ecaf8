package shelly

import (
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type gen2SysStatus struct {
	Mac string `json:"mac"`
}

// gen2SwitchStatus is the Switch.GetStatus document of second-generation
// devices. These measure voltage and current directly and count energy in
// watt-hours.
type gen2SwitchStatus struct {
	ID      int     `json:"id"`
	Output  bool    `json:"output"`
	APower  float64 `json:"apower"`
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	AEnergy struct {
		Total    float64   `json:"total"`
		ByMinute []float64 `json:"by_minute"`
		MinuteTs int       `json:"minute_ts"`
	} `json:"aenergy"`
}

type Gen2MeterReader struct {
	client *Client
	input  int
}

func CreateGen2MeterReader(access AccessConfig, meterInput int, timeout time.Duration,
	logger *zap.Logger, instrumentation *HTTPInstrument) (MeterReader, error) {
	// instrumentation
	var inst []HTTPInstrument
	logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "meter")).With(zap.String("variant", VariantGen2)))
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
	return &Gen2MeterReader{
		client: client,
		input:  meterInput,
	}, nil
}

func (reader *Gen2MeterReader) GetInfo() (*DeviceInfo, error) {
	var status gen2SysStatus
	if err := reader.client.GetJSON("rpc/Sys.GetStatus", nil, &status); err != nil {
		return nil, err
	}
	return &DeviceInfo{
		Serial:  status.Mac,
		Variant: VariantGen2,
	}, nil
}

func (reader *Gen2MeterReader) GetMeterSnapshot() (*MeterSnapshot, error) {
	query := url.Values{
		"id": []string{strconv.Itoa(reader.input)},
	}
	var status gen2SwitchStatus
	if err := reader.client.GetJSON("rpc/Switch.GetStatus", query, &status); err != nil {
		return nil, err
	}

	return &MeterSnapshot{
		PowerWatt:   status.APower,
		EnergyTotal: status.AEnergy.Total,
		EnergyUnit:  WattHours,
		VoltageVolt: status.Voltage,
		CurrentAmp:  status.Current,
	}, nil
}
