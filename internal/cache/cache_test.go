package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type profile struct {
	ID   int
	Name string
}

type record struct {
	ID       int
	Symptoms string
}

// gatedFetcher answers the n-th call with replies[n] once gates[n] is released.
type gatedFetcher[T any] struct {
	calls   atomic.Int32
	gates   []chan struct{}
	replies []T
	errs    []error
}

func newGatedFetcher[T any](replies ...T) *gatedFetcher[T] {
	f := &gatedFetcher[T]{replies: replies, errs: make([]error, len(replies))}
	for range replies {
		f.gates = append(f.gates, make(chan struct{}))
	}
	return f
}

func (f *gatedFetcher[T]) fetch(ctx context.Context) (T, error) {
	n := int(f.calls.Add(1)) - 1
	<-f.gates[n]
	return f.replies[n], f.errs[n]
}

func (f *gatedFetcher[T]) release(n int) {
	close(f.gates[n])
}

func drain(t *testing.T, c *Cache) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Drain(ctx))
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	require.Eventually(t, condition, 2*time.Second, time.Millisecond)
}

func TestLoadProfileReachesReady(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher(profile{ID: 1, Name: "Jane"})
	h, err := Register(c, "profile", fetcher.fetch)
	require.NoError(t, err)

	assert.Equal(t, StatusIdle, h.Read().Status)

	h.Load(context.Background())
	assert.Equal(t, StatusLoading, h.Read().Status)

	fetcher.release(0)
	require.NoError(t, h.Wait(context.Background()))

	got := h.Read()
	assert.Equal(t, StatusReady, got.Status)
	assert.True(t, got.HasValue)
	assert.Equal(t, "Jane", got.Value.Name)
	assert.Nil(t, got.Err)
	assert.False(t, got.FetchedAt.IsZero())
}

func TestLoadRecordsNetworkFailure(t *testing.T) {
	c := New()
	h, err := Register(c, "records", func(context.Context) ([]record, error) {
		return nil, &domain.NetworkError{Op: "GET /medical-records/", Err: errors.New("connection refused")}
	})
	require.NoError(t, err)

	got, err := h.LoadAndWait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.Err)
	assert.NotEmpty(t, got.Err.Message)
	assert.Equal(t, domain.ErrorKindNetwork, got.Err.Kind)
	assert.Nil(t, got.Value)
	assert.False(t, got.HasValue)
}

func TestLoadRecordsHTTPFailureKeepsStatus(t *testing.T) {
	c := New()
	h, err := Register(c, "records", func(context.Context) ([]record, error) {
		return nil, &domain.HTTPError{Status: 500, Message: "boom"}
	})
	require.NoError(t, err)

	got, err := h.LoadAndWait(context.Background())
	require.NoError(t, err)

	require.NotNil(t, got.Err)
	assert.Equal(t, domain.ErrorKindHTTP, got.Err.Kind)
	assert.Equal(t, 500, got.Err.HTTPStatus)
}

func TestConcurrentLoadsIssueSingleFetch(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher(profile{Name: "Jane"}, profile{Name: "unexpected"})
	h, err := Register(c, "profile", fetcher.fetch)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Load(context.Background())
		}()
	}
	wg.Wait()

	waitFor(t, func() bool { return fetcher.calls.Load() == 1 })
	fetcher.release(0)
	drain(t, c)

	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, "Jane", h.Read().Value.Name)

	h.Load(context.Background())
	drain(t, c)
	assert.Equal(t, int32(1), fetcher.calls.Load(), "ready resource must not refetch on Load")
}

func TestLastRequestWins(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher(profile{Name: "first"}, profile{Name: "second"})
	h, err := Register(c, "profile", fetcher.fetch)
	require.NoError(t, err)

	h.Load(context.Background())
	waitFor(t, func() bool { return fetcher.calls.Load() == 1 })
	h.Refresh(context.Background())
	waitFor(t, func() bool { return fetcher.calls.Load() == 2 })

	fetcher.release(1)
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, "second", h.Read().Value.Name)

	fetcher.release(0)
	drain(t, c)

	got := h.Read()
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, "second", got.Value.Name)
}

func TestSupersededFailureDoesNotOverwrite(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher(profile{}, profile{Name: "fresh"})
	fetcher.errs[0] = errors.New("stale failure")
	h, err := Register(c, "profile", fetcher.fetch)
	require.NoError(t, err)

	h.Load(context.Background())
	waitFor(t, func() bool { return fetcher.calls.Load() == 1 })
	h.Refresh(context.Background())
	waitFor(t, func() bool { return fetcher.calls.Load() == 2 })

	fetcher.release(0)
	fetcher.release(1)
	drain(t, c)

	got := h.Read()
	assert.Equal(t, StatusReady, got.Status)
	assert.Nil(t, got.Err)
	assert.Equal(t, "fresh", got.Value.Name)
}

func TestRefreshWhileLoadingStartsOneNewFetch(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher(profile{Name: "a"}, profile{Name: "b"})
	h, err := Register(c, "profile", fetcher.fetch)
	require.NoError(t, err)

	h.Load(context.Background())
	waitFor(t, func() bool { return fetcher.calls.Load() == 1 })
	h.Refresh(context.Background())
	assert.Equal(t, StatusLoading, h.Read().Status)

	fetcher.release(0)
	fetcher.release(1)
	drain(t, c)

	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, "b", h.Read().Value.Name)
}

func TestRefreshAfterReadyAndFailed(t *testing.T) {
	c := New()
	var calls atomic.Int32
	h, err := Register(c, "statistics", func(context.Context) (int, error) {
		n := calls.Add(1)
		if n == 1 {
			return 0, errors.New("down")
		}
		return int(n), nil
	})
	require.NoError(t, err)

	got, err := h.LoadAndWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)

	got, err = h.LoadAndWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, 2, got.Value)

	h.Refresh(context.Background())
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, 3, h.Read().Value)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFailedRefreshKeepsPreviousValue(t *testing.T) {
	c := New()
	var calls atomic.Int32
	h, err := Register(c, "profile", func(context.Context) (profile, error) {
		if calls.Add(1) == 1 {
			return profile{Name: "Jane"}, nil
		}
		return profile{}, &domain.HTTPError{Status: 503}
	})
	require.NoError(t, err)

	_, err = h.LoadAndWait(context.Background())
	require.NoError(t, err)

	h.Refresh(context.Background())
	require.NoError(t, h.Wait(context.Background()))

	got := h.Read()
	assert.Equal(t, StatusFailed, got.Status)
	assert.True(t, got.HasValue)
	assert.Equal(t, "Jane", got.Value.Name)
}

func TestMutateWithoutFetch(t *testing.T) {
	c := New()
	var calls atomic.Int32
	h, err := Register(c, "profile", func(context.Context) (profile, error) {
		calls.Add(1)
		return profile{}, nil
	})
	require.NoError(t, err)

	h.Mutate(func(current profile) profile {
		current.Name = "Jane"
		return current
	})

	got := h.Read()
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, "Jane", got.Value.Name)
	assert.True(t, got.HasValue)
	assert.Equal(t, int32(0), calls.Load())
}

func TestMutateAppendsRecord(t *testing.T) {
	c := New()
	var calls atomic.Int32
	h, err := Register(c, "records", func(context.Context) ([]record, error) {
		calls.Add(1)
		return []record{}, nil
	})
	require.NoError(t, err)

	_, err = h.LoadAndWait(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	newRecord := record{ID: 7, Symptoms: "fever"}
	h.Mutate(func(recs []record) []record {
		return append(recs, newRecord)
	})

	got := h.Read()
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, []record{newRecord}, got.Value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMutateDuringLoadWins(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher(profile{Name: "server"})
	h, err := Register(c, "profile", fetcher.fetch)
	require.NoError(t, err)

	h.Load(context.Background())
	waitFor(t, func() bool { return fetcher.calls.Load() == 1 })

	h.Mutate(func(profile) profile { return profile{Name: "local"} })
	require.NoError(t, h.Wait(context.Background()))

	fetcher.release(0)
	drain(t, c)

	got := h.Read()
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, "local", got.Value.Name)
}

func TestMutateUntypedReportsPresence(t *testing.T) {
	c := New()
	_, err := Register(c, "count", func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, err)

	var seen []bool
	increment := func(current any, hasValue bool) any {
		seen = append(seen, hasValue)
		n, _ := current.(int)
		return n + 1
	}
	require.NoError(t, c.Mutate("count", increment))
	require.NoError(t, c.Mutate("count", increment))

	snapshot, err := c.Read("count")
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Value)
	assert.Equal(t, []bool{false, true}, seen)
}

func TestMutatePanicLeavesResourceUntouched(t *testing.T) {
	c := New()
	h, err := Register(c, "records", func(context.Context) ([]int, error) { return nil, nil })
	require.NoError(t, err)
	require.NoError(t, h.Mutate(func([]int) []int { return []int{1, 2} }))

	err = h.Mutate(func([]int) []int { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updater panicked: boom")

	got := h.Read()
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, []int{1, 2}, got.Value)

	require.NoError(t, h.Refresh(context.Background()))
	drain(t, c)
	assert.Equal(t, StatusReady, h.Read().Status)
}

func TestMutateUpdaterCanReadCache(t *testing.T) {
	c := New()
	records, err := Register(c, "records", func(context.Context) ([]int, error) { return nil, nil })
	require.NoError(t, err)
	total, err := Register(c, "total", func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, err)
	require.NoError(t, records.Mutate(func([]int) []int { return []int{3, 4} }))

	err = total.Mutate(func(int) int {
		sum := 0
		for _, n := range records.Read().Value {
			sum += n
		}
		return sum
	})
	require.NoError(t, err)
	assert.Equal(t, 7, total.Read().Value)
}

func TestMutateReappliesWhenFetchLandsDuringUpdate(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher([]int{1})
	h, err := Register(c, "records", fetcher.fetch)
	require.NoError(t, err)

	require.NoError(t, h.Load(context.Background()))
	waitFor(t, func() bool { return fetcher.calls.Load() == 1 })

	var calls atomic.Int32
	err = h.Mutate(func(current []int) []int {
		if calls.Add(1) == 1 {
			fetcher.release(0)
			waitFor(t, func() bool { return h.Read().Status == StatusReady })
		}
		return append(append([]int(nil), current...), 99)
	})
	require.NoError(t, err)
	drain(t, c)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []int{1, 99}, h.Read().Value)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c := New()
	var calls atomic.Int32
	h, err := Register(c, "statistics", func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	})
	require.NoError(t, err)

	_, err = h.LoadAndWait(context.Background())
	require.NoError(t, err)

	h.Invalidate()
	got := h.Read()
	assert.Equal(t, StatusIdle, got.Status)
	assert.Equal(t, 1, got.Value, "invalidated value stays readable")

	got, err = h.LoadAndWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Value)
}

func TestInvalidateWhileLoadingDiscardsResult(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher(1, 2)
	h, err := Register(c, "statistics", fetcher.fetch)
	require.NoError(t, err)

	h.Load(context.Background())
	h.Invalidate()
	fetcher.release(0)
	drain(t, c)

	assert.Equal(t, StatusIdle, h.Read().Status)
	assert.False(t, h.Read().HasValue)

	h.Load(context.Background())
	fetcher.release(1)
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, 2, h.Read().Value)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStaleAfterRefetchesOnLoad(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := New(WithStaleAfter(time.Minute), WithClock(clock))
	var calls atomic.Int32
	h, err := Register(c, "profile", func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	})
	require.NoError(t, err)

	_, err = h.LoadAndWait(context.Background())
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	_, err = h.LoadAndWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(31 * time.Second)
	got, err := h.LoadAndWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, got.Value)
}

func TestFetcherPanicIsRecorded(t *testing.T) {
	c := New()
	h, err := Register(c, "profile", func(context.Context) (profile, error) {
		panic("nil map")
	})
	require.NoError(t, err)

	got, err := h.LoadAndWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.Err)
	assert.Equal(t, domain.ErrorKindUnknown, got.Err.Kind)
	assert.Contains(t, got.Err.Message, "nil map")
}

func TestFetchIgnoresCallerCancellation(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value
	h, err := Register(c, "profile", func(ctx context.Context) (profile, error) {
		close(started)
		<-release
		if ctx.Err() != nil {
			fetchErr.Store(ctx.Err())
		}
		return profile{Name: "Jane"}, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.Load(ctx)
	<-started
	cancel()
	close(release)
	drain(t, c)

	assert.Nil(t, fetchErr.Load())
	assert.Equal(t, "Jane", h.Read().Value.Name)
}

func TestWaitHonoursContext(t *testing.T) {
	c := New()
	fetcher := newGatedFetcher(1)
	h, err := Register(c, "statistics", fetcher.fetch)
	require.NoError(t, err)

	h.Load(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, h.Wait(ctx), context.DeadlineExceeded)

	fetcher.release(0)
	drain(t, c)
	require.NoError(t, h.Wait(context.Background()))
}

func TestRegisterValidation(t *testing.T) {
	c := New()

	_, err := Register[int](c, "", func(context.Context) (int, error) { return 0, nil })
	require.Error(t, err)

	_, err = Register[int](c, "statistics", nil)
	require.Error(t, err)

	_, err = Register(c, "statistics", func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, err)

	_, err = Register(c, "statistics", func(context.Context) (int, error) { return 0, nil })
	require.ErrorIs(t, err, ErrDuplicateResource)

	assert.Equal(t, []string{"statistics"}, c.Names())
}

func TestUnknownResource(t *testing.T) {
	c := New()

	require.ErrorIs(t, c.Load(context.Background(), "missing"), ErrUnknownResource)
	require.ErrorIs(t, c.Refresh(context.Background(), "missing"), ErrUnknownResource)
	require.ErrorIs(t, c.Invalidate("missing"), ErrUnknownResource)
	require.ErrorIs(t, c.Wait(context.Background(), "missing"), ErrUnknownResource)
	require.ErrorIs(t, c.Mutate("missing", func(any, bool) any { return nil }), ErrUnknownResource)

	_, err := c.Read("missing")
	require.ErrorIs(t, err, ErrUnknownResource)

	h := Handle[int]{cache: c, name: "missing"}
	require.ErrorIs(t, h.Load(context.Background()), ErrUnknownResource)
	require.ErrorIs(t, h.Mutate(func(int) int { return 1 }), ErrUnknownResource)
	got := h.Read()
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.Err)
	assert.Contains(t, got.Err.Message, "unknown resource")
}

func TestDrainWaitsForFetchesStartedWhileDraining(t *testing.T) {
	c := New()
	first := newGatedFetcher(1)
	second := newGatedFetcher(2)
	a, err := Register(c, "a", first.fetch)
	require.NoError(t, err)
	b, err := Register(c, "b", second.fetch)
	require.NoError(t, err)

	require.NoError(t, c.Drain(context.Background()))

	require.NoError(t, a.Load(context.Background()))
	done := make(chan error, 1)
	go func() { done <- c.Drain(context.Background()) }()

	require.NoError(t, b.Load(context.Background()))
	first.release(0)
	waitFor(t, func() bool { return a.Read().Ready() })

	select {
	case <-done:
		t.Fatal("drain returned while a fetch was still running")
	case <-time.After(20 * time.Millisecond):
	}

	second.release(0)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not return")
	}
	assert.Equal(t, 2, b.Read().Value)
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	outcomes []Outcome
	mutated  []string
}

func (o *recordingObserver) FetchStarted(resource string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, resource)
}

func (o *recordingObserver) FetchSettled(_ string, outcome Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) Mutated(resource string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mutated = append(o.mutated, resource)
}

func TestObserverAndLoggerSeeLifecycle(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	obs := &recordingObserver{}
	c := New(WithObserver(obs), WithLogger(zap.New(core)))

	fetcher := newGatedFetcher(1, 2)
	h, err := Register(c, "statistics", fetcher.fetch)
	require.NoError(t, err)

	h.Load(context.Background())
	waitFor(t, func() bool { return fetcher.calls.Load() == 1 })
	h.Refresh(context.Background())
	waitFor(t, func() bool { return fetcher.calls.Load() == 2 })
	fetcher.release(1)
	require.NoError(t, h.Wait(context.Background()))
	fetcher.release(0)
	drain(t, c)
	h.Mutate(func(n int) int { return n + 1 })

	assert.Equal(t, []string{"statistics", "statistics"}, obs.started)
	assert.ElementsMatch(t, []Outcome{OutcomeReady, OutcomeDiscarded}, obs.outcomes)
	assert.Equal(t, []string{"statistics"}, obs.mutated)
	assert.Equal(t, 1, logs.FilterMessage("fetch result discarded").Len())
	assert.Equal(t, 1, logs.FilterMessage("resource mutated").Len())
}
