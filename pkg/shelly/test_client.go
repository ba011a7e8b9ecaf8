package shelly

func CreateTestMeterReader() (MeterReader, error) {
	return TestMeterReader{}, nil
}

type TestMeterReader struct {
}

func (reader TestMeterReader) GetInfo() (*DeviceInfo, error) {
	return &DeviceInfo{
		Serial:  "A8032ABE54DC",
		Variant: VariantGen2,
	}, nil
}

func (reader TestMeterReader) GetMeterSnapshot() (*MeterSnapshot, error) {
	return &MeterSnapshot{
		PowerWatt:   460,
		EnergyTotal: 1523400,
		EnergyUnit:  WattHours,
		VoltageVolt: 230,
		CurrentAmp:  2,
	}, nil
}
