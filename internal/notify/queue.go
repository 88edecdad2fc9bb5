// Package notify holds the transient queue of submission outcome messages.
//
// Each notification removes itself after a fixed TTL. The queue is
// process-local and unbounded: a burst of failures grows it until the
// timers catch up.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/doctranslate/internal/logger"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5000 * time.Millisecond

// Layout constants for stacked rendering.
const (
	BaseHeight = 80
	Gap        = 10
)

// Kind distinguishes success and error notifications.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Title returns the heading shown above the message.
func (k Kind) Title() string {
	if k == KindError {
		return "File upload failed!"
	}
	return "File uploaded successfully!"
}

// Notification is one queued message.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// View is a notification with its render position.
type View struct {
	Notification
	Index int    `json:"index"`
	Title string `json:"title"`
	Top   int    `json:"top"`
}

// TopOffset returns the vertical offset of the notification at index.
func TopOffset(index int) int {
	return index*BaseHeight + (index+1)*Gap
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) *time.Timer

// Option configures a Queue.
type Option func(*Queue)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(q *Queue) {
		if ttl > 0 {
			q.ttl = ttl
		}
	}
}

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithAfterFunc replaces the timer scheduler.
func WithAfterFunc(after AfterFunc) Option {
	return func(q *Queue) { q.after = after }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// Queue is an ordered list of notifications. Insertion order is display order.
// It is safe for concurrent use; every mutation replaces the backing slice so
// a List result is never modified afterwards.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	ttl   time.Duration
	now   func() time.Time
	after AfterFunc
	log   *logger.Logger
}

// NewQueue creates an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		ttl:   DefaultTTL,
		now:   time.Now,
		after: time.AfterFunc,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.log == nil {
		q.log = logger.GetDefault().WithField(logger.FieldComponent, "notify")
	}
	return q
}

// Enqueue appends a notification and schedules its removal after the TTL.
// The expiry timer is independent of every other notification and cannot be cancelled.
func (q *Queue) Enqueue(kind Kind, message string) Notification {
	n := Notification{
		ID:        newID(),
		Kind:      kind,
		Message:   message,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	next := make([]Notification, len(q.items), len(q.items)+1)
	copy(next, q.items)
	q.items = append(next, n)
	size := len(q.items)
	q.mu.Unlock()

	q.log.WithFields(logger.Fields{
		logger.FieldNotificationID: n.ID,
		"kind":                     string(kind),
		logger.FieldCount:          size,
	}).Debug("Notification enqueued")

	id := n.ID
	q.after(q.ttl, func() {
		if q.Remove(id) {
			q.log.WithField(logger.FieldNotificationID, id).Debug("Notification expired")
		}
	})
	return n
}

// Remove deletes the notification with id and reports whether it was present.
// Removing an unknown id is a no-op, so a dismiss racing an expiry is harmless.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i, n := range q.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	next := make([]Notification, 0, len(q.items)-1)
	next = append(next, q.items[:idx]...)
	next = append(next, q.items[idx+1:]...)
	q.items = next
	return true
}

// List returns the current notifications in display order.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	items := q.items
	q.mu.Unlock()

	out := make([]Notification, len(items))
	copy(out, items)
	return out
}

// Views returns the notifications with their stacked positions.
func (q *Queue) Views() []View {
	items := q.List()
	views := make([]View, len(items))
	for i, n := range items {
		views[i] = View{
			Notification: n,
			Index:        i,
			Title:        n.Kind.Title(),
			Top:          TopOffset(i),
		}
	}
	return views
}

// Len returns the number of queued notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// newID mints a time-ordered unique id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
