package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash holds messages an actor cannot process in its current state, so
// they can be redelivered after a state change. Redelivery goes through
// RequestWithCustomSender, which keeps the original sender intact.
type Stash struct {
	pending []stashed
}

type stashed struct {
	msg    any
	sender *actor.PID
}

func (s *Stash) Stash(ctx actor.Context, msg any) {
	s.pending = append(s.pending, stashed{msg: msg, sender: ctx.Sender()})
}

// UnstashAll redelivers every stashed message in arrival order.
func (s *Stash) UnstashAll(ctx actor.Context) {
	for _, e := range s.pending {
		ctx.RequestWithCustomSender(ctx.Self(), e.msg, e.sender)
	}
	s.pending = nil
}

// UnstashOldest redelivers the oldest stashed message, if any.
func (s *Stash) UnstashOldest(ctx actor.Context) {
	if len(s.pending) == 0 {
		return
	}
	e := s.pending[0]
	s.pending = s.pending[1:]
	ctx.RequestWithCustomSender(ctx.Self(), e.msg, e.sender)
}
