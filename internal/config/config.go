package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

// AccessTypeOnPremise is the only supported way to reach the meter: plain
// HTTP on the local network.
const AccessTypeOnPremise = "OnPremise"

type Config struct {
	LogLevel zapcore.Level
	LogFile  string       `mapstructure:"log_file"`
	Device   DeviceConfig `mapstructure:"device"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`

	PVInverter    PVInverterConfig `mapstructure:"pvinverter"`
	MonitorConfig MonitorConfig    `mapstructure:"monitor"`
	Port          uint             `mapstructure:"port"`
	HttpLog       bool             `mapstructure:"http_log"`
}

type DeviceConfig struct {
	AccessType string `mapstructure:"access_type"`
	Host       string
	Username   string
	Password   string
	Variant    string
	MeterInput int `mapstructure:"meter_input"`
}

type PVInverterConfig struct {
	Phase          string
	DeviceInstance int    `mapstructure:"device_instance"`
	CustomName     string `mapstructure:"custom_name"`
}

type MonitorConfig struct {
	PollIntervalMillis        uint32 `mapstructure:"poll_interval_millis"`
	SignOfLifeIntervalMinutes uint32 `mapstructure:"sign_of_life_interval_minutes"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// AccessTypeError is fatal: there is no remote/cloud mode to fall back to.
type AccessTypeError struct {
	AccessType string
}

func (e *AccessTypeError) Error() string {
	return fmt.Sprintf("access type %q is not supported", e.AccessType)
}

func CheckAccessType(accessType string) error {
	if accessType != AccessTypeOnPremise {
		return &AccessTypeError{AccessType: accessType}
	}
	return nil
}
