package auth

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goContacts/internal/audit"
	"github.com/MrEthical07/goContacts/internal/mailer"
	"github.com/MrEthical07/goContacts/internal/users"
	"github.com/MrEthical07/goContacts/metrics"
	"github.com/MrEthical07/goContacts/password"
	"github.com/MrEthical07/goContacts/token"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Confirmation
	err  error
}

func (m *recordingMailer) SendConfirmation(_ context.Context, c mailer.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, c)
	return nil
}

func (m *recordingMailer) last(t *testing.T) mailer.Confirmation {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected a confirmation to be sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeAvatars struct {
	uploaded map[string][]byte
	err      error
}

func (f *fakeAvatars) Upload(_ context.Context, username, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.uploaded == nil {
		f.uploaded = map[string][]byte{}
	}
	f.uploaded[username] = data
	return "https://cdn.example.com/avatars/" + username, nil
}

type harness struct {
	svc     *Service
	dir     *users.MemoryDirectory
	clock   *testClock
	mailer  *recordingMailer
	avatars *fakeAvatars
	codec   *token.Codec
	hasher  *password.Hasher
	metrics *metrics.Metrics
	events  *audit.ChannelSink
	audit   *audit.Dispatcher
}

type harnessOption func(*Config)

func withoutRevokeOnReuse() harnessOption {
	return func(c *Config) { c.RevokeOnReuse = false }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	return newHarnessWithDirectory(t, users.NewMemoryDirectory(), opts...)
}

func newHarnessWithDirectory(t *testing.T, dir Directory, opts ...harnessOption) *harness {
	t.Helper()

	clock := newTestClock()
	codec, err := token.NewCodec(token.Config{Secret: testSecret, Issuer: "contacts", Now: clock.Now})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	hasher, err := password.New(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
		MinLength:   6,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	events := audit.NewChannelSink(256)
	dispatcher := audit.NewDispatcher(audit.Config{Enabled: true, BufferSize: 256, DropIfFull: true}, events)
	t.Cleanup(dispatcher.Close)

	h := &harness{
		clock:   clock,
		mailer:  &recordingMailer{},
		avatars: &fakeAvatars{},
		codec:   codec,
		hasher:  hasher,
		metrics: metrics.New(metrics.Config{Enabled: true}),
		events:  events,
		audit:   dispatcher,
	}
	if mem, ok := dir.(*users.MemoryDirectory); ok {
		h.dir = mem
	}

	svc, err := New(cfg, Deps{
		Codec:     codec,
		Hasher:    hasher,
		Directory: dir,
		Mailer:    h.mailer,
		Avatars:   h.avatars,
		Audit:     dispatcher,
		Metrics:   h.metrics,
		Now:       clock.Now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h
}

// registerConfirmed registers email and confirms it through the mailed token.
func (h *harness) registerConfirmed(t *testing.T, username, email, pw string) users.Account {
	t.Helper()
	ctx := context.Background()
	acct, err := h.svc.Register(ctx, username, email, pw)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.svc.Confirm(ctx, h.mailer.last(t).Token); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return acct
}

// waitForEvent drains audit events until one of eventType arrives.
func (h *harness) waitForEvent(t *testing.T, eventType string) audit.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-h.events.Events():
			if e.EventType == eventType {
				return e
			}
		case <-timeout:
			t.Fatalf("no %s audit event", eventType)
			return audit.Event{}
		}
	}
}

var errBoom = errors.New("boom")
