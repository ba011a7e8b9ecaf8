package util

import (
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/config"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Device: config.DeviceConfig{
			AccessType: config.AccessTypeOnPremise,
			Host:       "-.-.-.-",
			Variant:    shelly.VariantGen2,
			MeterInput: 0,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "shellypv_test",
		},
		PVInverter: config.PVInverterConfig{
			Phase:          "L1",
			DeviceInstance: 40,
			CustomName:     "Test PV",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis:        250,
			SignOfLifeIntervalMinutes: 5,
		},
		Port: 8080,
	}
}
