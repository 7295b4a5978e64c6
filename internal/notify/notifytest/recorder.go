// Package notifytest records outgoing mail in memory.
package notifytest

import (
	"context"
	"sync"

	"semzo-prive/internal/notify"
)

type Recorder struct {
	mu   sync.Mutex
	sent []notify.Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.sent...)
}

// To returns every message addressed to addr.
func (r *Recorder) To(addr string) []notify.Message {
	var out []notify.Message
	for _, m := range r.Sent() {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}
