package actor

import (
	"fmt"
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/config"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/events"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/service"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/metrics"
	. "github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/util/actorutil"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// UpdaterActor owns the inverter model. It polls the meter through the
// shelly actor at a fixed interval, folds each snapshot into the model and
// publishes the changed paths as events. A failed cycle leaves the model
// and the update index untouched.
type UpdaterActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	shellyActor *actor.PID
	mqttActor   *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream
	metrics     *metrics.BridgeMetrics
	phase       domain.Phase

	model         domain.InverterModel
	counter       domain.UpdateCounter
	lastUpdate    time.Time
	serial        string
	hasModel      bool
	writablePaths map[string]bool

	logger *zap.Logger
}

type updateTick struct {
}

type infoRetryTick struct {
}

func NewUpdaterActor(config *config.Config, shellyActor *actor.PID, mqttActor *actor.PID, eventStream *eventstream.EventStream, metrics *metrics.BridgeMetrics, logger *zap.Logger) *UpdaterActor {
	// phase is validated during config load
	phase, err := domain.ParsePhase(config.PVInverter.Phase)
	if err != nil {
		phase = domain.PhaseL1
	}
	act := &UpdaterActor{
		config:      config,
		shellyActor: shellyActor,
		mqttActor:   mqttActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger("updater", logger),
		eventStream: eventStream,
		metrics:     metrics,
		phase:       phase,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *UpdaterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *UpdaterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("updater@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)

		state.requestDeviceInfo(ctx)
		state.behavior.Become(state.WaitingInfoReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("updater@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *UpdaterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("updater@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_UPDATER,
			Healthy: true,
			State:   "idle",
		})
	case updateTick:
		state.logger.Debug("updater@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.shellyActor, domain.GetMeterSnapshotRequest{}, 1*time.Second), func(err error) any {
			return domain.GetMeterSnapshotResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})

		// schedule next tick
		state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), updateTick{})
		state.behavior.BecomeStacked(state.WaitingSnapshotReceive)
	case domain.GetModelRequest:
		state.logger.Debug("updater@default GetModelRequest")
		ctx.Respond(domain.GetModelResponse{
			Model:       state.model,
			UpdateIndex: uint8(state.counter),
			LastUpdate:  state.lastUpdate,
			Serial:      state.serial,
		})
	case domain.ExternalPathWrite:
		state.handleExternalWrite(msg)
	default:
		state.logger.Debug("updater@default: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *UpdaterActor) WaitingSnapshotReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetMeterSnapshotResponse:
		if msg.HasResponseError() {
			state.logger.Error("updater@waiting GetMeterSnapshotResponse error", zap.Error(msg.GetResponseError()))
			state.metrics.RecordCycleError()
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
			return
		}
		state.logger.Debug("updater@waiting GetMeterSnapshotResponse")
		if msg.Snapshot != nil {
			state.applySnapshot(msg.Snapshot)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("updater@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *UpdaterActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceInfoResponse:
		if msg.HasResponseError() || msg.Info == nil {
			state.logger.Error("updater@waitingInfo GetDeviceInfoResponse", zap.Error(msg.GetResponseError()))
			// the meter may still be booting, retry after one poll interval
			state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), infoRetryTick{})
			return
		}
		state.logger.Debug("updater@waitingInfo GetDeviceInfoResponse", zap.String("serial", msg.Info.Serial))
		state.serial = msg.Info.Serial

		paths := events.RegistrationPaths(state.config.PVInverter.DeviceInstance, state.config.PVInverter.CustomName, state.serial, state.config.Device.Variant)
		state.writablePaths = make(map[string]bool, len(paths))
		for _, p := range paths {
			if p.Writable {
				state.writablePaths[p.Path] = true
			}
		}
		ctx.Send(state.mqttActor, domain.RegisterPathsRequest{Paths: paths})

		state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), updateTick{})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case infoRetryTick:
		state.logger.Debug("updater@waitingInfo retry")
		state.requestDeviceInfo(ctx)
	default:
		state.logger.Debug("updater@waitingInfo: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *UpdaterActor) requestDeviceInfo(ctx actor.Context) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.shellyActor, domain.GetDeviceInfoRequest{}, 1*time.Second), func(err error) any {
		return domain.GetDeviceInfoResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

// applySnapshot folds one successful meter read into the model. The first
// snapshot publishes the whole measurement tree, later ones only the paths
// that changed. The update index advances on every successful cycle, changed
// values or not.
func (state *UpdaterActor) applySnapshot(snapshot *shelly.MeterSnapshot) {
	next := service.AggregatePhases(*snapshot, state.phase)

	var changed []domain.PathValue
	if state.hasModel {
		changed = next.Diff(state.model)
	} else {
		changed = next.PathValues()
	}
	for _, ev := range events.PathValueUpdates(changed) {
		state.eventStream.Publish(ev)
	}

	state.counter = state.counter.Next()
	state.eventStream.Publish(events.UpdateIndexEvent(uint8(state.counter)))

	state.model = next
	state.lastUpdate = time.Now()
	state.hasModel = true
	state.metrics.RecordCycle(next, uint8(state.counter), state.lastUpdate)
}

func (state *UpdaterActor) handleExternalWrite(msg domain.ExternalPathWrite) {
	if !state.writablePaths[msg.Path] {
		state.logger.Warn("updater@default write to non writable path", zap.String("path", msg.Path))
		return
	}
	state.logger.Debug("updater@default someone else updated path", zap.String("path", msg.Path), zap.Float64("value", msg.Value))
	state.model.Set(msg.Path, msg.Value)
	state.metrics.RecordExternalWrite()
	state.eventStream.Publish(events.PathValueUpdate(msg.Path, msg.Value))
}

func (state *UpdaterActor) pollInterval() time.Duration {
	return time.Duration(state.config.MonitorConfig.PollIntervalMillis) * time.Millisecond
}
