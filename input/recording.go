package input

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/BaSui01/pixelagent/types"
)

// EventKind 事件类型
type EventKind string

const (
	EventMove      EventKind = "move"
	EventMouseDown EventKind = "mouse_down"
	EventMouseUp   EventKind = "mouse_up"
	EventKeyDown   EventKind = "key_down"
	EventKeyUp     EventKind = "key_up"
	EventType      EventKind = "type"
)

// Event 是一条记录下来的输入事件
type Event struct {
	Kind     EventKind     `json:"kind"`
	Point    types.Point   `json:"point"`
	Button   Button        `json:"button,omitempty"`
	Key      string        `json:"key,omitempty"`
	Text     string        `json:"text,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	// Held lists the keys held down when the event was sent.
	Held []string `json:"held,omitempty"`
}

// RecordingDriver 记录所有事件而不触碰真实设备。
// 用于 dry-run 与测试。
type RecordingDriver struct {
	mu      sync.Mutex
	events  []Event
	pointer types.Point
	held    []string
	onEvent func(Event)
	err     error
}

// NewRecordingDriver creates a driver with the pointer at the origin.
func NewRecordingDriver() *RecordingDriver {
	return &RecordingDriver{}
}

// OnEvent registers a hook called after every recorded event.
func (d *RecordingDriver) OnEvent(fn func(Event)) *RecordingDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEvent = fn
	return d
}

// FailWith makes every subsequent call fail with err.
func (d *RecordingDriver) FailWith(err error) *RecordingDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
	return d
}

func (d *RecordingDriver) record(ctx context.Context, e Event, apply func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	if d.err != nil {
		err := d.err
		d.mu.Unlock()
		return err
	}
	if apply != nil {
		apply()
	}
	if e.Kind != EventMove {
		e.Point = d.pointer
	}
	e.Held = slices.Clone(d.held)
	d.events = append(d.events, e)
	hook := d.onEvent
	d.mu.Unlock()

	if hook != nil {
		hook(e)
	}
	return nil
}

// Move implements Driver.
func (d *RecordingDriver) Move(ctx context.Context, p types.Point, dur time.Duration) error {
	return d.record(ctx, Event{Kind: EventMove, Point: p, Duration: dur}, func() { d.pointer = p })
}

// MouseDown implements Driver.
func (d *RecordingDriver) MouseDown(ctx context.Context, b Button) error {
	return d.record(ctx, Event{Kind: EventMouseDown, Button: b}, nil)
}

// MouseUp implements Driver.
func (d *RecordingDriver) MouseUp(ctx context.Context, b Button) error {
	return d.record(ctx, Event{Kind: EventMouseUp, Button: b}, nil)
}

// KeyDown implements Driver.
func (d *RecordingDriver) KeyDown(ctx context.Context, key string) error {
	return d.record(ctx, Event{Kind: EventKeyDown, Key: key}, func() {
		if !slices.Contains(d.held, key) {
			d.held = append(d.held, key)
		}
	})
}

// KeyUp implements Driver.
func (d *RecordingDriver) KeyUp(ctx context.Context, key string) error {
	return d.record(ctx, Event{Kind: EventKeyUp, Key: key}, func() {
		d.held = slices.DeleteFunc(d.held, func(k string) bool { return k == key })
	})
}

// Type implements Driver.
func (d *RecordingDriver) Type(ctx context.Context, text string) error {
	return d.record(ctx, Event{Kind: EventType, Text: text}, nil)
}

// Events returns a copy of every recorded event.
func (d *RecordingDriver) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.events)
}

// Clicks returns the pointer position of every mouse-down event.
func (d *RecordingDriver) Clicks() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Event
	for _, e := range d.events {
		if e.Kind == EventMouseDown {
			out = append(out, e)
		}
	}
	return out
}

// Typed concatenates all typed text.
func (d *RecordingDriver) Typed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var s string
	for _, e := range d.events {
		if e.Kind == EventType {
			s += e.Text
		}
	}
	return s
}

// Held returns the keys currently held down.
func (d *RecordingDriver) Held() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.held)
}

// Pointer returns the current pointer position.
func (d *RecordingDriver) Pointer() types.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pointer
}

// Reset clears the recorded events.
func (d *RecordingDriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}
