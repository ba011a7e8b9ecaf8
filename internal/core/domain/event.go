package domain

import "fmt"

type PathUpdateEventMixIn struct {
	Path string
}

type PathUpdateEvent interface {
	PathUpdateEvent() string
	UpdatePath() string
}

func (e PathUpdateEventMixIn) PathUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e PathUpdateEventMixIn) UpdatePath() string {
	return e.Path
}

// PathValueUpdateEvent carries a new value for a service path, with the
// text rendering the bus displays next to it.
type PathValueUpdateEvent struct {
	PathUpdateEventMixIn
	Value any
	Text  string
}
