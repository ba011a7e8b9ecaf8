package actor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/config"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/events"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/mqtt"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/util"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActorDummy(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	time.Sleep(2 * time.Second)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.NotNil(t, resp)

	es.Publish(events.PathValueUpdate(domain.PhasePowerPath(domain.PhaseL1), 245))
	es.Publish(events.PathValueUpdate(domain.PathAcPower, 245))

	time.Sleep(1 * time.Second)

	context.Stop(pid)

	time.Sleep(1 * time.Second)

	as.Shutdown()
}

type brokerMessage struct {
	topic   string
	payload string
}

func startTestBroker(t *testing.T, address string, messages chan<- brokerMessage) *mqttv2.Server {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	// Allow all connections.
	_ = server.AddHook(new(auth.AllowHook), nil)

	tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
	if err := server.AddListener(tcp); err != nil {
		t.Error(err)
		return nil
	}
	if err := server.Serve(); err != nil {
		t.Error(err)
		return nil
	}

	err := server.Subscribe("#", 1, func(cl *mqttv2.Client, sub packets.Subscription, pk packets.Packet) {
		select {
		case messages <- brokerMessage{topic: pk.TopicName, payload: string(pk.Payload)}:
		default:
		}
	})
	if err != nil {
		t.Error(err)
		return nil
	}
	return server
}

func awaitMessage(t *testing.T, messages <-chan brokerMessage, topic string) (brokerMessage, bool) {
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-messages:
			if msg.topic == topic {
				return msg, true
			}
		case <-deadline:
			t.Errorf("no message on %s", topic)
			return brokerMessage{}, false
		}
	}
}

// recorderActor is the parent of the MQTT actor under test. It forwards
// registration requests down and captures routed path writes.
type recorderActor struct {
	cfg    *config.Config
	es     *eventstream.EventStream
	logger *zap.Logger
	writes chan *mqtt.ParsedPathWrite
	child  *actor.PID
}

func (r *recorderActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		props := actor.PropsFromProducer(func() actor.Actor { return NewMQTTActor(r.cfg, r.es, r.logger) })
		pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MQTT)
		if err != nil {
			panic(err)
		}
		r.child = pid
	case domain.RegisterPathsRequest:
		ctx.Send(r.child, msg)
	case ParsedPathWrite:
		r.writes <- msg.Write
	}
}

func TestMQTTActorAgainstBroker(t *testing.T) {

	assert := assert.New(t)

	messages := make(chan brokerMessage, 128)
	server := startTestBroker(t, "127.0.0.1:18883", messages)
	if server == nil {
		return
	}
	defer server.Close()

	cfg := util.LoadTestConfig()
	cfg.MQTT.Port = 18883

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	es := eventstream.EventStream{}
	recorder := &recorderActor{
		cfg:    &cfg,
		es:     &es,
		logger: logger,
		writes: make(chan *mqtt.ParsedPathWrite, 8),
	}
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor { return recorder }))

	// bridge state goes online on connect
	online, ok := awaitMessage(t, messages, "shellypv_test/bridge/state")
	if !ok {
		return
	}
	assert.Equal(mqtt.MQTT_PAYLOAD_ONLINE, online.payload)

	time.Sleep(1 * time.Second)

	// path registration announces the full tree with initial values
	context.Send(pid, domain.RegisterPathsRequest{
		Paths: events.RegistrationPaths(40, "Test PV", "A8032ABE54DC", "shellyplus1pm"),
	})
	serial, ok := awaitMessage(t, messages, "shellypv_test/pvinverter/http_40/Serial")
	if !ok {
		return
	}
	assert.JSONEq(`{"value": "A8032ABE54DC", "text": "A8032ABE54DC"}`, serial.payload)
	power, ok := awaitMessage(t, messages, "shellypv_test/pvinverter/http_40/Ac/Power")
	if !ok {
		return
	}
	assert.JSONEq(`{"value": 0, "text": "0.0W"}`, power.payload)

	// model updates from the event stream are republished
	es.Publish(events.PathValueUpdate(domain.PhasePowerPath(domain.PhaseL1), 460))
	update, ok := awaitMessage(t, messages, "shellypv_test/pvinverter/http_40/Ac/L1/Power")
	if !ok {
		return
	}
	assert.JSONEq(`{"value": 460, "text": "460.0W"}`, update.payload)

	// writes from the bus side are routed to the parent
	err := server.Publish("shellypv_test/W/pvinverter/http_40/Ac/Power", []byte(`{"value": 42}`), false, 1)
	assert.NoError(err)

	select {
	case write := <-recorder.writes:
		assert.Equal("/Ac/Power", write.Path)
		assert.Equal(42.0, write.Value)
	case <-time.After(5 * time.Second):
		t.Error("no path write routed to parent")
	}

	context.Stop(pid)

	time.Sleep(1 * time.Second)

	as.Shutdown()
}

func TestRegistrationPayloadTexts(t *testing.T) {

	assert := assert.New(t)

	// initial text rendering matches the value formatters
	paths := events.RegistrationPaths(40, "Test PV", "A8032ABE54DC", "shellyplus1pm")
	for _, spec := range paths {
		payload, err := mqtt.EncodePathPayload(spec.Initial, domain.FormatText(spec.Format, spec.Initial))
		assert.NoError(err)
		if spec.Path == domain.PathAcPower {
			assert.JSONEq(`{"value": 0, "text": "0.0W"}`, payload)
		}
		if strings.HasSuffix(spec.Path, "/Energy/Forward") {
			assert.JSONEq(`{"value": null, "text": ""}`, payload, fmt.Sprintf("path %s", spec.Path))
		}
	}
}
