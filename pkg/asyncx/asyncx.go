package asyncx

import (
	"context"
	"sync"
	"time"
)

// ─── Future ──────────────────────────────────────────────────────────────────

type result[T any] struct {
	value T
	err   error
}

// Future represents a value that will be available asynchronously.
// Create one with Run and retrieve its value with Await.
type Future[T any] struct {
	ch  chan result[T]
	res *result[T]
	mu  sync.Mutex
}

// Run executes fn in a goroutine and returns a Future for its result.
func Run[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{ch: make(chan result[T], 1)}
	go func() {
		v, err := fn()
		f.ch <- result[T]{value: v, err: err}
	}()
	return f
}

// Await blocks until the Future completes. Subsequent calls return the cached result.
func (f *Future[T]) Await() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.res == nil {
		r := <-f.ch
		f.res = &r
	}
	return f.res.value, f.res.err
}

// AwaitCtx is Await bounded by ctx. The computation keeps running if ctx ends first.
func (f *Future[T]) AwaitCtx(ctx context.Context) (T, error) {
	done := make(chan struct{})
	var (
		v   T
		err error
	)
	go func() {
		v, err = f.Await()
		close(done)
	}()

	select {
	case <-done:
		return v, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ─── All ─────────────────────────────────────────────────────────────────────

// All runs all fns concurrently and waits for every one to finish.
// Results keep the order of fns; the first error in that order is returned.
func All[T any](ctx context.Context, fns ...func(context.Context) (T, error)) ([]T, error) {
	results := make([]T, len(fns))
	errs := make([]error, len(fns))

	var wg sync.WaitGroup
	wg.Add(len(fns))

	for i, fn := range fns {
		go func() {
			defer wg.Done()
			results[i], errs[i] = fn(ctx)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ─── Retry ───────────────────────────────────────────────────────────────────

// Backoff describes how Retry waits between attempts. The delay doubles after
// every failure and never exceeds Max when Max is set.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration

	// OnRetry, when set, is called before each wait with the failed attempt
	// number (starting at 1).
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Retry calls fn until it succeeds or the attempts run out, returning the
// last error. Cancelling ctx stops the loop between attempts.
func Retry[T any](ctx context.Context, b Backoff, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero  T
		err   error
		delay = b.Initial
	)
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		var v T
		if v, err = fn(ctx); err == nil {
			return v, nil
		}
		if attempt == b.Attempts {
			break
		}

		if b.OnRetry != nil {
			b.OnRetry(attempt, err, delay)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return zero, err
}

// ─── Timeout ─────────────────────────────────────────────────────────────────

// WithTimeout runs fn with a deadline of d.
// Returns context.DeadlineExceeded if fn does not finish in time.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
