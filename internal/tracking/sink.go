// Package tracking isolates fire-and-forget analytics behind a sink that
// never returns an error: a tracking failure must not leak into the cart,
// checkout or payment flow.
package tracking

import "context"

type Event struct {
	Name   string            `json:"name"`
	UserID int64             `json:"userId,omitempty"`
	Props  map[string]string `json:"props,omitempty"`
}

type Sink interface {
	Track(ctx context.Context, event Event)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Track(context.Context, Event) {}
