// Package mailertest provides an in-memory Mailer for tests.
package mailertest

import (
	"context"
	"sync"

	"github.com/mrlokans/library/internal/mailer"
)

// Fake records sent messages. FailFor makes sends to the given recipients fail.
type Fake struct {
	mu      sync.Mutex
	sent    []mailer.Message
	FailFor map[string]error
}

func New() *Fake {
	return &Fake{FailFor: map[string]error{}}
}

func (f *Fake) Send(ctx context.Context, msg mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailFor[msg.To]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// Fail makes every following send to addr return err.
func (f *Fake) Fail(addr string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailFor[addr] = err
}

// Recover clears a failure set with Fail.
func (f *Fake) Recover(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.FailFor, addr)
}

// Sent returns a copy of all delivered messages.
func (f *Fake) Sent() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mailer.Message, len(f.sent))
	copy(out, f.sent)
	return out
}
