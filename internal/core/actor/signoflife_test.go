package actor

import (
	"testing"
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSignOfLifeLogsModelState(t *testing.T) {
	h := startUpdaterHarness(t)
	defer h.as.Shutdown()

	<-h.registrations
	h.awaitEvent(t, domain.PathUpdateIndex)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	cfg := util.LoadTestConfig()
	solPID := h.context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewSignOfLifeActor(&cfg, h.updater, logger)
	}))

	time.Sleep(500 * time.Millisecond)

	// the scheduled tick is minutes away, trigger one by hand
	h.context.Send(solPID, signOfLifeTick{})

	time.Sleep(500 * time.Millisecond)

	entries := logs.FilterMessage("sign of life").All()
	if assert.NotEmpty(t, entries) {
		fields := entries[0].ContextMap()
		assert.Equal(t, 460.0, fields["ac_power"])
		assert.NotZero(t, fields["update_index"])
	}

	h.context.Stop(solPID)
}
