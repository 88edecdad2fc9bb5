// Package refresh owns the calendar day the document list is scoped to and
// decides how a refresh request turns into list queries.
//
// The document list is a snapshot: every fetch replaces it wholesale. Only
// the most recently issued fetch may apply its result, so a slow response
// for a day the user has already left never overwrites a newer one.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/logger"
)

var (
	// ErrSuperseded is returned when a newer fetch was issued before this one settled.
	ErrSuperseded = errors.New("refresh: superseded by a newer fetch")
	// ErrClosed is returned once the coordinator has been closed.
	ErrClosed = errors.New("refresh: coordinator closed")
	// ErrInvalidDay is returned for malformed calendar-day keys.
	ErrInvalidDay = errors.New("refresh: invalid day")
)

// Fetcher queries the documents uploaded on a calendar day.
type Fetcher interface {
	ListByDate(ctx context.Context, day string) ([]domain.Document, error)
}

// State is a consistent copy of the coordinator's view.
type State struct {
	// Date is the cursor.
	Date string
	// SnapshotDate is the day Documents were fetched for; it lags Date while a switch is loading.
	SnapshotDate string
	Documents    []domain.Document
	Err          error
	Loading      bool
	FetchedAt    time.Time
}

// Failed reports whether the error view should replace the list.
// The error view and the loading indicator are mutually exclusive.
func (s State) Failed() bool {
	return s.Err != nil && !s.Loading
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the time source; the cursor starts at the clock's current day.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// Coordinator owns the list cursor and the current snapshot.
type Coordinator struct {
	fetcher Fetcher
	now     func() time.Time
	log     *logger.Logger

	mu        sync.Mutex
	date      string
	issued    uint64
	applied   uint64
	closed    bool
	docs      []domain.Document
	docsDate  string
	err       error
	fetchedAt time.Time
}

// New creates a coordinator whose cursor is today in local time.
// No fetch happens until SetDate, Refresh or Run is called.
func New(fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher: fetcher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetDefault().WithField(logger.FieldComponent, "refresh")
	}
	c.date = domain.DayOf(c.now().Local())
	return c
}

// Date returns the cursor.
func (c *Coordinator) Date() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// State returns a copy of the current view.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs := make([]domain.Document, len(c.docs))
	copy(docs, c.docs)
	return State{
		Date:         c.date,
		SnapshotDate: c.docsDate,
		Documents:    docs,
		Err:          c.err,
		Loading:      c.applied < c.issued,
		FetchedAt:    c.fetchedAt,
	}
}

// SetDate switches the cursor to the local day of t and fetches it.
func (c *Coordinator) SetDate(ctx context.Context, t time.Time) error {
	return c.begin(ctx, domain.DayOf(t.Local()))
}

// SetDay switches the cursor to a YYYY-MM-DD key and fetches it.
func (c *Coordinator) SetDay(ctx context.Context, day string) error {
	if _, err := domain.ParseDay(day, time.Local); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDay, err)
	}
	return c.begin(ctx, day)
}

// Refresh re-fetches the current day when target is nil or falls on the
// cursor's day. A target on another day moves the cursor there instead, which
// fetches that day once.
func (c *Coordinator) Refresh(ctx context.Context, target *time.Time) error {
	day := ""
	if target != nil {
		day = domain.DayOf(target.Local())
	}
	return c.begin(ctx, day)
}

// Close stops the coordinator. Results of fetches still in flight are discarded.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// begin moves the cursor to day (when non-empty and different), issues the
// next sequence number and runs the fetch for the resulting cursor.
func (c *Coordinator) begin(ctx context.Context, day string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if day != "" && day != c.date {
		c.log.WithFields(logger.Fields{"from": c.date, "to": day}).Debug("Moving list cursor")
		c.date = day
	}
	day = c.date
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	return c.fetch(ctx, day, seq)
}

// fetch runs one query and applies it only if seq is still the newest issued fetch.
// A failure caused by ctx ending settles the fetch without touching the list.
func (c *Coordinator) fetch(ctx context.Context, day string, seq uint64) error {
	ctx = logger.SetListDate(logger.SetComponent(ctx, "refresh"), day)
	start := c.now()

	docs, err := c.fetcher.ListByDate(ctx, day)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		logger.CtxDebug(ctx, "Discarding list result after close")
		return ErrClosed
	}
	if seq != c.issued {
		c.mu.Unlock()
		logger.With(logger.Fields{"seq": seq}).Debug(ctx, "Discarding superseded list result")
		return ErrSuperseded
	}
	c.applied = seq
	abandoned := err != nil && ctx.Err() != nil
	switch {
	case abandoned:
		// The caller gave up; the list keeps its last snapshot and error.
	case err != nil:
		c.err = err
	default:
		c.docs = docs
		c.docsDate = day
		c.err = nil
		c.fetchedAt = c.now()
	}
	c.mu.Unlock()

	elapsed := c.now().Sub(start).Milliseconds()
	if abandoned {
		logger.FromContext(ctx).WithError(err).Debug("Document list fetch abandoned by caller")
		return err
	}
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Document list fetch failed")
		return err
	}
	logger.With(logger.Fields{logger.FieldCount: len(docs)}).WithDuration(elapsed).Info(ctx, "Document list refreshed")
	return nil
}
