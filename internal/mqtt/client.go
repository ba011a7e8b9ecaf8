package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"

	SERVICE_TYPE = "pvinverter"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("shellypv_%d", rand.IntN(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:          mqtt.NewClient(opts),
		cfg:             cfg.MQTT,
		deviceInstance:  cfg.PVInverter.DeviceInstance,
		pathWriteRegexp: pathWriteExtractor(cfg.MQTT.BaseTopic, cfg.PVInverter.DeviceInstance),
	}
}

type MQTTClient struct {
	client          mqtt.Client
	cfg             config.MQTTConfig
	deviceInstance  int
	pathWriteRegexp *regexp.Regexp
}

// PathPayload is the JSON document published for every service path.
type PathPayload struct {
	Value any    `json:"value"`
	Text  string `json:"text"`
}

// ParsedPathWrite is a numeric value some bus consumer wrote to one of
// the service paths.
type ParsedPathWrite struct {
	Path    string
	Value   float64
	Payload string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

// ServiceTopicPrefix is the topic root of the published service, e.g.
// "shellypv/pvinverter/http_40".
func (c *MQTTClient) ServiceTopicPrefix() string {
	return serviceTopicPrefix(c.baseTopic(), c.deviceInstance)
}

func (c *MQTTClient) PathStateTopic(path string) string {
	return fmt.Sprintf("%s%s", c.ServiceTopicPrefix(), path)
}

// PathWriteTopicFilter is the subscription that receives value writes
// from bus consumers.
func (c *MQTTClient) PathWriteTopicFilter() string {
	return fmt.Sprintf("%s/W/%s/http_%02d/#", c.baseTopic(), SERVICE_TYPE, c.deviceInstance)
}

func EncodePathPayload(value any, text string) (string, error) {
	encoded, err := json.Marshal(PathPayload{Value: value, Text: text})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// ParsePathWrite extracts the target path and numeric value from a write
// topic message. The payload may be a {"value": x} document or a bare
// number.
func (c *MQTTClient) ParsePathWrite(msg mqtt.Message) (*ParsedPathWrite, error) {
	matches := c.pathWriteRegexp.FindStringSubmatch(msg.Topic())
	if len(matches) != 2 {
		return nil, errors.New("invalid write topic")
	}
	payload := string(msg.Payload())

	var doc struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(msg.Payload(), &doc); err == nil && doc.Value != nil {
		return &ParsedPathWrite{Path: matches[1], Value: *doc.Value, Payload: payload}, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil {
		return nil, fmt.Errorf("write payload is not numeric: %q", payload)
	}
	return &ParsedPathWrite{Path: matches[1], Value: value, Payload: payload}, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToWriteTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.PathWriteTopicFilter(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func serviceTopicPrefix(baseTopic string, deviceInstance int) string {
	return fmt.Sprintf("%s/%s/http_%02d", baseTopic, SERVICE_TYPE, deviceInstance)
}

// base topic is validated to plain [a-z0-9_]+ so it is safe inside a
// regexp without quoting
func pathWriteExtractor(baseTopic string, deviceInstance int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/W/%s/http_%02d(/.+)$", baseTopic, SERVICE_TYPE, deviceInstance))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
