// Package notify delivers operator notifications (title, message, severity,
// display duration) over an in-process event bus.
//
// The core never renders anything: front ends subscribe to the bus and
// display what they receive. Every notification is also logged.
package notify

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// Topic is the bus topic notifications are published on.
const Topic = "pos:notify"

// Display durations.
const (
	DefaultDuration = 3500 * time.Millisecond
	SaleDuration    = 4000 * time.Millisecond
)

// Severity classifies a notification.
type Severity string

const (
	Success Severity = "success"
	Info    Severity = "info"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notification is one operator message.
type Notification struct {
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Severity Severity      `json:"severity"`
	Duration time.Duration `json:"duration"`
}

// Notifier is the notification sink used by the workflow.
type Notifier interface {
	Notify(n Notification)
}

// Bus publishes notifications on an EventBus and logs them.
type Bus struct {
	bus evbus.Bus
	log *zap.Logger
}

// NewBus creates a bus with no subscribers.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{bus: evbus.New(), log: log.Named("notify")}
}

// Notify fills in the default duration, logs n and publishes it
// synchronously to every subscriber.
func (b *Bus) Notify(n Notification) {
	if n.Duration <= 0 {
		n.Duration = DefaultDuration
	}
	if n.Severity == "" {
		n.Severity = Info
	}

	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.String("severity", string(n.Severity)),
	}
	switch n.Severity {
	case Error:
		b.log.Error("notification", fields...)
	case Warning:
		b.log.Warn("notification", fields...)
	default:
		b.log.Info("notification", fields...)
	}

	b.bus.Publish(Topic, n)
}

// Subscribe registers fn to receive every notification.
func (b *Bus) Subscribe(fn func(Notification)) error {
	return b.bus.Subscribe(Topic, fn)
}

// Unsubscribe removes a handler previously passed to Subscribe.
func (b *Bus) Unsubscribe(fn func(Notification)) error {
	return b.bus.Unsubscribe(Topic, fn)
}

// Recorder collects notifications in memory. It can be used directly as a
// Notifier or subscribed to a Bus.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.list))
	copy(out, r.list)
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.list) == 0 {
		return Notification{}, false
	}
	return r.list[len(r.list)-1], true
}

// Reset discards recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = nil
}
