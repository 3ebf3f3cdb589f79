package hardware

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"lautenbacher.net/fpgaspi/bus"
)

const DefaultHistory = 500

type EventKind int

const (
	EventTransfer EventKind = iota
	EventLevel
)

// Event is one recorded bus operation.
type Event struct {
	Time time.Time
	Kind EventKind
	Out  []byte
	In   []byte
	High bool
	Err  error
}

func (e Event) String() string {
	var s string
	if e.Kind == EventLevel {
		level := "LOW"
		if e.High {
			level = "HIGH"
		}
		s = "reset " + level
	} else {
		s = fmt.Sprintf("xfer % x -> % x", e.Out, e.In)
	}
	if e.Err != nil {
		s += " error: " + e.Err.Error()
	}
	return s
}

// Recorder passes operations through to a transport and a line and
// keeps the most recent ones. It can be used as both collaborators of
// a bus.Client.
type Recorder struct {
	mu        sync.Mutex
	transport bus.Transport
	line      bus.Line
	capacity  int
	events    deque.Deque[Event]
	now       func() time.Time
}

func NewRecorder(transport bus.Transport, line bus.Line, capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultHistory
	}
	r := &Recorder{
		transport: transport,
		line:      line,
		capacity:  capacity,
		now:       time.Now,
	}
	r.events.Grow(capacity)
	return r
}

func (r *Recorder) Transfer(out []byte) ([]byte, error) {
	in, err := r.transport.Transfer(out)
	r.record(Event{
		Kind: EventTransfer,
		Out:  append([]byte(nil), out...),
		In:   append([]byte(nil), in...),
		Err:  err,
	})
	return in, err
}

func (r *Recorder) SetLevel(high bool) error {
	err := r.line.SetLevel(high)
	r.record(Event{Kind: EventLevel, High: high, Err: err})
	return err
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Time = r.now()
	if r.events.Len() == r.capacity {
		r.events.PopFront()
	}
	r.events.PushBack(e)
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]Event, r.events.Len())
	for i := range events {
		events[i] = r.events.At(i)
	}
	return events
}

// Close closes the wrapped transport and line.
func (r *Recorder) Close() error {
	var firstErr error
	if c, ok := r.transport.(io.Closer); ok {
		firstErr = c.Close()
	}
	if c, ok := r.line.(io.Closer); ok && !bus.SameDevice(r.line, r.transport) {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
