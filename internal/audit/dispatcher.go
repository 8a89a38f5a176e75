package audit

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultMaxMetadata = 8
	maxMetadataValue   = 256

	// MetadataOverflowKey replaces metadata entries cut by the per-event cap.
	// Its value is the number of entries removed.
	MetadataOverflowKey = "metadata_dropped"
)

// Config controls dispatcher buffering. MaxMetadata caps the metadata entries
// kept on each event (default 8). Now stamps events that arrive without a
// timestamp.
type Config struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	MaxMetadata int
	Now         func() time.Time
}

// Dispatcher relays events to a sink from a single goroutine. A nil
// *Dispatcher discards events, so callers need not check Enabled.
type Dispatcher struct {
	cfg  Config
	sink Sink

	queue   chan Event
	stop    chan struct{}
	running sync.WaitGroup
	closing atomic.Bool
	once    sync.Once

	dropped atomic.Uint64
	mu      sync.Mutex
	byType  map[string]uint64
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.MaxMetadata <= 0 {
		cfg.MaxMetadata = defaultMaxMetadata
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		queue:  make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		byType: make(map[string]uint64),
	}
	d.running.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.running.Done()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full buffer drops the event and
// counts it; otherwise Emit waits for space, ctx or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = d.normalize(event)

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.recordDrop(event.EventType)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// normalize stamps the event and caps its metadata. The caller's map is
// never modified.
func (d *Dispatcher) normalize(event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = d.cfg.Now().UTC()
	}
	if len(event.Metadata) == 0 {
		return event
	}

	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keep := len(keys)
	if keep > d.cfg.MaxMetadata {
		keep = d.cfg.MaxMetadata - 1
	}
	meta := make(map[string]string, keep+1)
	for _, k := range keys[:keep] {
		meta[k] = clip(event.Metadata[k])
	}
	if cut := len(keys) - keep; cut > 0 {
		meta[MetadataOverflowKey] = strconv.Itoa(cut)
	}
	event.Metadata = meta
	return event
}

func clip(v string) string {
	if len(v) <= maxMetadataValue {
		return v
	}
	return strings.ToValidUTF8(v[:maxMetadataValue], "")
}

func (d *Dispatcher) recordDrop(eventType string) {
	d.dropped.Add(1)
	d.mu.Lock()
	d.byType[eventType]++
	d.mu.Unlock()
}

// Close stops accepting events and drains the buffer into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.running.Wait()
	})
}

// Dropped reports events lost to a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType reports drops for a single event type, e.g. EventLogin.
func (d *Dispatcher) DroppedByType(eventType string) uint64 {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byType[eventType]
}
