package actor

import (
	"fmt"
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/util/actorutil"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

// ShellyActor owns the device reader. Each request runs as a guarded task
// with a 2 second deadline, and only one request is in flight at a time.
type ShellyActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   shelly.MeterReader
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewShellyActor(reader shelly.MeterReader, logger *zap.Logger) *ShellyActor {
	act := &ShellyActor{
		reader:   reader,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger("shelly", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ShellyActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ShellyActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("shelly@starting started")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("shelly@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ShellyActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("shelly@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SHELLY,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetDeviceInfoRequest:
		state.logger.Debug("shelly@default: GetDeviceInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getDeviceInfo),
			mapTaskResult[domain.GetDeviceInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetDeviceInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingShelly)
	case domain.GetMeterSnapshotRequest:
		state.logger.Debug("shelly@default: GetMeterSnapshotRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getMeterSnapshot),
			mapTaskResult[domain.GetMeterSnapshotResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetMeterSnapshotResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingShelly)
	default:
		state.logger.Debug("shelly@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ShellyActor) WaitingShelly(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("shelly@WaitingShelly backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("shelly@WaitingShelly stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *ShellyActor) getDeviceInfo() (*domain.GetDeviceInfoResponse, error) {
	info, err := a.reader.GetInfo()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetDeviceInfoResponse{
		Info: info,
	}, nil
}

func (a *ShellyActor) getMeterSnapshot() (*domain.GetMeterSnapshotResponse, error) {
	snapshot, err := a.reader.GetMeterSnapshot()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetMeterSnapshotResponse{
		Snapshot: snapshot,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
