package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/adapter/actor"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/config"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/metrics"
	. "github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type ShellyActorProvider func() *adactor.ShellyActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck  healthCheckResult
	eventStream         *eventstream.EventStream
	shellyActor         *actor.PID
	mqttActor           *actor.PID
	updaterActor        *actor.PID
	signOfLifeActor     *actor.PID
	shellyActorProvider ShellyActorProvider
	mqttActorProvider   MQTTActorProvider
	metrics             *metrics.BridgeMetrics
	logger              *zap.Logger
}

type healthCheckResult struct {
	shellyActorHealthy  bool
	mqttActorHealthy    bool
	updaterActorHealthy bool
	checksReceived      int
	respondTo           *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, shellyActorProvider ShellyActorProvider, mqttActorProvider MQTTActorProvider, metrics *metrics.BridgeMetrics, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger("master", logger),
		eventStream:         &eventstream.EventStream{},
		shellyActorProvider: shellyActorProvider,
		mqttActorProvider:   mqttActorProvider,
		metrics:             metrics,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start Shelly child
		shellyActorPID, err := state.startShellyActor(ctx)
		if err != nil {
			panic(err)
		}
		state.shellyActor = shellyActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Updater child
		updaterActorPID, err := state.startUpdaterActor(ctx)
		if err != nil {
			panic(err)
		}
		state.updaterActor = updaterActorPID

		// start SignOfLife child
		signOfLifeActorPID, err := state.startSignOfLifeActor(ctx)
		if err != nil {
			panic(err)
		}
		state.signOfLifeActor = signOfLifeActorPID

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Shelly Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.shellyActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_SHELLY,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Updater Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.updaterActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_UPDATER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetModelRequest:
		// the updater owns the model, let it answer the caller directly
		state.logger.Debug("master@default GetModelRequest")
		ctx.Forward(state.updaterActor)
	case adactor.ParsedPathWrite:
		// redirect bus writes to the updater
		state.logger.Debug("master@default ParsedPathWrite", zap.Any("write", msg.Write))
		if msg.Write != nil {
			ctx.Send(state.updaterActor, domain.ExternalPathWrite{
				Path:  msg.Write.Path,
				Value: msg.Write.Value,
			})
		}
	case *actor.Terminated:
		// if the meter actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_SHELLY) {
			state.logger.Error("master@default shelly error")
			panic(errors.New("shelly terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_SHELLY {
				state.currentHealthCheck.shellyActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_UPDATER {
				state.currentHealthCheck.updaterActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startShellyActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	shellyProps := actor.PropsFromProducer(func() actor.Actor {
		return state.shellyActorProvider()
	}, actor.WithSupervisor(supervisor))
	shellyActorPID, err := ctx.SpawnNamed(shellyProps, domain.ACTOR_ID_SHELLY)
	if err != nil {
		return nil, err
	}

	return shellyActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startUpdaterActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewAllForOneStrategy(1, 10*time.Second, decider)

	updaterProps := actor.PropsFromProducer(func() actor.Actor {
		return NewUpdaterActor(&state.config, state.shellyActor, state.mqttActor, state.eventStream, state.metrics, state.logger)
	}, actor.WithSupervisor(supervisor))
	updaterActorPID, err := ctx.SpawnNamed(updaterProps, domain.ACTOR_ID_UPDATER)
	if err != nil {
		return nil, err
	}

	return updaterActorPID, nil
}

func (state *MasterOfPuppetsActor) startSignOfLifeActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	signOfLifeProps := actor.PropsFromProducer(func() actor.Actor {
		return NewSignOfLifeActor(&state.config, state.updaterActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	signOfLifePID, err := ctx.SpawnNamed(signOfLifeProps, domain.ACTOR_ID_SIGN_OF_LIFE)
	if err != nil {
		return nil, err
	}

	return signOfLifePID, nil
}

func (state *healthCheckResult) reset() {
	state.shellyActorHealthy = false
	state.mqttActorHealthy = false
	state.updaterActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.shellyActorHealthy && state.mqttActorHealthy && state.updaterActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      "master",
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
