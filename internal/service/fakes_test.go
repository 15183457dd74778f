package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/blueprint-paywall/internal/payment"
	"github.com/iliyamo/blueprint-paywall/internal/queue"
)

// fakeProvider serves sessions from a map.  Webhook payloads are the session
// id; the signature "good" verifies.
type fakeProvider struct {
	mu        sync.Mutex
	sessions  map[string]*payment.Session
	events    map[string]*payment.Event
	created   []payment.CheckoutRequest
	createErr error
	getErr    error
	noSecret  bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]*payment.Session{}, events: map[string]*payment.Event{}}
}

func (f *fakeProvider) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &payment.Checkout{ID: "cs_new", URL: "https://checkout.example/cs_new"}, nil
}

func (f *fakeProvider) RetrieveSession(_ context.Context, id string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if f.noSecret {
		return nil, payment.ErrWebhookSecretMissing
	}
	if signature != "good" {
		return nil, payment.ErrInvalidSignature
	}
	ev, ok := f.events[string(payload)]
	if !ok {
		return nil, errors.New("decode: unexpected payload")
	}
	return ev, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.FulfillmentRecorded
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.FulfillmentRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}
