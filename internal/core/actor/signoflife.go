package actor

import (
	"fmt"
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/config"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	. "github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// SignOfLifeActor logs a periodic heartbeat with the current model state so
// long running installs leave a trace in the log even when nothing changes.
type SignOfLifeActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	updaterActor *actor.PID
	config       *config.Config

	logger *zap.Logger
}

type signOfLifeTick struct {
}

func NewSignOfLifeActor(config *config.Config, updaterActor *actor.PID, logger *zap.Logger) *SignOfLifeActor {
	act := &SignOfLifeActor{
		config:       config,
		updaterActor: updaterActor,
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		logger:       ActorLogger("signoflife", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *SignOfLifeActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SignOfLifeActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("signoflife@starting started")

		if state.config.MonitorConfig.SignOfLifeIntervalMinutes > 0 {
			state.scheduler = scheduler.NewTimerScheduler(ctx)
			state.scheduler.RequestOnce(state.interval(), ctx.Self(), signOfLifeTick{})
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("signoflife@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SignOfLifeActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("signoflife@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SIGN_OF_LIFE,
			Healthy: true,
			State:   "idle",
		})
	case signOfLifeTick:
		state.logger.Debug("signoflife@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.updaterActor, domain.GetModelRequest{}, 2*time.Second), func(err error) any {
			return domain.GetModelResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})

		// schedule next tick
		state.scheduler.RequestOnce(state.interval(), ctx.Self(), signOfLifeTick{})
	case domain.GetModelResponse:
		if msg.HasResponseError() {
			state.logger.Error("signoflife@default GetModelResponse error", zap.Error(msg.GetResponseError()))
			return
		}
		state.logger.Info("sign of life",
			zap.Time("last_update", msg.LastUpdate),
			zap.Float64("ac_power", msg.Model.TotalPowerWatt),
			zap.Float64("ac_energy_forward", msg.Model.TotalEnergyForwardKWh),
			zap.Uint8("update_index", msg.UpdateIndex))
	default:
		state.logger.Debug("signoflife@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SignOfLifeActor) interval() time.Duration {
	return time.Duration(state.config.MonitorConfig.SignOfLifeIntervalMinutes) * time.Minute
}
