// Package cache keeps the server-fetched resources a dashboard view needs.
//
// Every resource is registered once under a name together with the fetcher that
// produces it. Load starts the fetcher in the background when nothing is cached
// or the last attempt failed; Refresh always starts a new fetch. When several
// fetches for the same name overlap, only the most recently issued one may
// update the value. Mutate applies a local update without touching the network.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/ports"
	"go.uber.org/zap"
)

var (
	ErrUnknownResource   = errors.New("unknown resource")
	ErrDuplicateResource = errors.New("resource already registered")
)

type Option func(*Cache)

// WithStaleAfter makes Load refetch ready values older than d. Zero disables staleness.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Cache) {
		c.staleAfter = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Cache) {
		if observer != nil {
			c.observer = observer
		}
	}
}

func WithClock(clock ports.Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string

	// running counts fetch goroutines; drained is closed when it drops to zero.
	running int
	drained chan struct{}

	staleAfter time.Duration
	logger     *zap.Logger
	observer   Observer
	clock      ports.Clock
}

type entry struct {
	name  string
	fetch func(ctx context.Context) (any, error)

	status    Status
	value     any
	hasValue  bool
	fetchedAt time.Time
	updatedAt time.Time
	err       *ErrorInfo

	// rev changes whenever value does.
	rev uint64
	// seq is the number of the latest issued request; results carrying an older number are dropped.
	seq uint64
	// settled is closed once the latest request settles. Nil unless loading.
	settled chan struct{}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*entry),
		logger:   zap.NewNop(),
		observer: noopObserver{},
		clock:    ports.SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register declares a resource. It does not fetch.
func Register[T any](c *Cache, name string, fetch Fetcher[T]) (Handle[T], error) {
	if name == "" {
		return Handle[T]{}, fmt.Errorf("register resource: name is required")
	}
	if fetch == nil {
		return Handle[T]{}, fmt.Errorf("register resource %q: fetcher is required", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; ok {
		return Handle[T]{}, fmt.Errorf("register resource %q: %w", name, ErrDuplicateResource)
	}

	c.entries[name] = &entry{
		name:   name,
		status: StatusIdle,
		fetch: func(ctx context.Context) (any, error) {
			return fetch(ctx)
		},
	}
	c.order = append(c.order, name)

	return Handle[T]{cache: c, name: name}, nil
}

// Load fetches the resource if it is idle or failed, or ready but stale.
// It returns immediately; the only error is ErrUnknownResource.
func (c *Cache) Load(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.lookup(name)
	if err != nil {
		return err
	}

	switch e.status {
	case StatusLoading:
		return nil
	case StatusReady:
		if !c.staleLocked(e) {
			return nil
		}
	}

	c.startLocked(ctx, e)
	return nil
}

// Refresh starts a new fetch whatever the current status. A fetch already in
// flight keeps running but its result will be discarded.
func (c *Cache) Refresh(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.lookup(name)
	if err != nil {
		return err
	}

	c.startLocked(ctx, e)
	return nil
}

// Mutate replaces the value with update(current) and marks the resource ready.
// hasValue reports whether current came from a fetch or an earlier mutation.
// Fetches still in flight can no longer overwrite the result.
//
// update runs without the cache lock held, so it may read the cache. If the
// value changes while it runs, update is called again with the new value. A
// panicking update leaves the resource untouched and is returned as an error.
func (c *Cache) Mutate(name string, update func(current any, hasValue bool) any) error {
	if update == nil {
		return fmt.Errorf("mutate resource %q: updater is required", name)
	}

	for {
		c.mu.Lock()
		e, err := c.lookup(name)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		current, hasValue, rev := e.value, e.hasValue, e.rev
		c.mu.Unlock()

		next, err := safeUpdate(update, current, hasValue)
		if err != nil {
			c.logger.Warn("mutation failed", zap.String("resource", name), zap.Error(err))
			return fmt.Errorf("mutate resource %q: %w", name, err)
		}

		c.mu.Lock()
		if e.rev != rev {
			c.mu.Unlock()
			continue
		}
		e.value = next
		e.hasValue = true
		e.rev++
		e.status = StatusReady
		e.err = nil
		e.updatedAt = c.clock.Now()
		e.seq++
		e.settleLocked()
		c.mu.Unlock()
		break
	}

	c.logger.Debug("resource mutated", zap.String("resource", name))
	c.observer.Mutated(name)
	return nil
}

// Invalidate marks the resource idle so the next Load refetches it. The last
// value stays readable.
func (c *Cache) Invalidate(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.lookup(name)
	if err != nil {
		return err
	}

	e.status = StatusIdle
	e.seq++
	e.settleLocked()
	return nil
}

func (c *Cache) Read(name string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	return e.snapshot(), nil
}

// Wait blocks until the resource is no longer loading or ctx ends.
func (c *Cache) Wait(ctx context.Context, name string) error {
	c.mu.Lock()
	e, err := c.lookup(name)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	settled := e.settled
	c.mu.Unlock()

	if settled == nil {
		return nil
	}

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain waits for every fetch goroutine, including superseded ones and those
// started while draining.
func (c *Cache) Drain(ctx context.Context) error {
	c.mu.Lock()
	drained := c.drained
	c.mu.Unlock()

	if drained == nil {
		return nil
	}

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Names lists registered resources in registration order.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

func (c *Cache) lookup(name string) (*entry, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return e, nil
}

func (c *Cache) staleLocked(e *entry) bool {
	if c.staleAfter <= 0 {
		return false
	}
	return c.clock.Now().Sub(e.updatedAt) >= c.staleAfter
}

func (c *Cache) startLocked(ctx context.Context, e *entry) {
	e.seq++
	seq := e.seq
	e.status = StatusLoading
	if e.settled == nil {
		e.settled = make(chan struct{})
	}

	if c.running == 0 {
		c.drained = make(chan struct{})
	}
	c.running++
	go c.run(context.WithoutCancel(ctx), e, seq)
}

func (c *Cache) run(ctx context.Context, e *entry, seq uint64) {
	defer c.fetchDone()

	c.logger.Debug("fetch started", zap.String("resource", e.name), zap.Uint64("seq", seq))
	c.observer.FetchStarted(e.name)
	started := c.clock.Now()

	value, err := safeFetch(ctx, e.fetch)

	c.mu.Lock()
	now := c.clock.Now()
	elapsed := now.Sub(started)

	if seq != e.seq {
		c.mu.Unlock()
		c.logger.Debug("fetch result discarded",
			zap.String("resource", e.name),
			zap.Uint64("seq", seq),
			zap.Error(err),
		)
		c.observer.FetchSettled(e.name, OutcomeDiscarded, elapsed)
		return
	}

	outcome := OutcomeReady
	if err != nil {
		outcome = OutcomeFailed
		e.status = StatusFailed
		e.err = NewErrorInfo(err)
	} else {
		e.status = StatusReady
		e.value = value
		e.hasValue = true
		e.rev++
		e.err = nil
		e.fetchedAt = now
		e.updatedAt = now
	}
	e.settleLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("fetch failed", zap.String("resource", e.name), zap.Error(err))
	} else {
		c.logger.Debug("fetch succeeded", zap.String("resource", e.name), zap.Duration("elapsed", elapsed))
	}
	c.observer.FetchSettled(e.name, outcome, elapsed)
}

func (c *Cache) fetchDone() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running--
	if c.running == 0 {
		close(c.drained)
		c.drained = nil
	}
}

func (e *entry) settleLocked() {
	if e.settled != nil {
		close(e.settled)
		e.settled = nil
	}
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Name:      e.name,
		Status:    e.status,
		Value:     e.value,
		HasValue:  e.hasValue,
		FetchedAt: e.fetchedAt,
		UpdatedAt: e.updatedAt,
		Err:       e.err,
	}
}

func safeUpdate(update func(any, bool) any, current any, hasValue bool) (next any, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = fmt.Errorf("updater panicked: %v", r)
		}
	}()
	return update(current, hasValue), nil
}

func safeFetch(ctx context.Context, fetch func(context.Context) (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("fetcher panicked: %v", r)
		}
	}()
	return fetch(ctx)
}
