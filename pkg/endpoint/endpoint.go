// Package endpoint selects a healthy storage-network endpoint from an ordered
// list of candidates. Each selection is an attempt cycle: candidates are
// probed in list order (or concurrently with the lowest index still winning)
// and the first one that passes its liveness probe is returned as a connected
// handle. An endpoint that failed its probe is never returned within the same
// cycle. A last-known-good endpoint may be tried first as a fast path; that
// cache is advisory only.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrAllEndpointsUnavailable is matched (via errors.Is) by *UnavailableError.
var ErrAllEndpointsUnavailable = errors.New("endpoint: all endpoints unavailable")

// State is the liveness of an endpoint within one attempt cycle.
type State int

const (
	StateUnknown State = iota
	StateHealthy
	StateUnreachable
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Handle is a connected client bound to one endpoint.
type Handle interface {
	// Health performs a lightweight liveness call.
	Health(ctx context.Context) error
	// Close releases the connection.
	Close() error
}

// Dialer connects to url. Dialing should not block on the network when the
// transport connects lazily; the probe is what establishes liveness.
type Dialer[T Handle] func(ctx context.Context, url string) (T, error)

// Attempt records the outcome of probing one endpoint.
type Attempt struct {
	URL     string
	State   State
	Err     error
	Latency time.Duration
}

// UnavailableError is returned when every candidate failed its probe. It
// carries each attempted endpoint together with its failure reason.
type UnavailableError struct {
	Attempts []Attempt
}

func (e *UnavailableError) Error() string {
	var b strings.Builder
	b.WriteString(ErrAllEndpointsUnavailable.Error())
	for i, a := range e.Attempts {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %v", a.URL, a.Err)
	}
	return b.String()
}

// Is reports whether target is ErrAllEndpointsUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrAllEndpointsUnavailable
}

// Options tune probing.
type Options struct {
	// ProbeTimeout bounds dial plus liveness call for one endpoint. Zero means no extra bound.
	ProbeTimeout time.Duration
	// Concurrent probes candidates in parallel; the lowest healthy index still wins.
	Concurrent bool
	// MaxConcurrent bounds parallel probes. Defaults to 4.
	MaxConcurrent int
	// CacheTTL keeps the last healthy endpoint as a fast path. Zero disables it.
	CacheTTL time.Duration
}

const lastGoodKey = "last-good"

// Selector probes an ordered list of endpoints. It is safe for concurrent use.
type Selector[T Handle] struct {
	urls []string
	dial Dialer[T]
	opts Options
	// known holds the index of the last healthy endpoint; nil when disabled.
	known *cache.Cache
}

// New constructs a Selector over urls (in preference order).
func New[T Handle](urls []string, dial Dialer[T], opts Options) (*Selector[T], error) {
	if len(urls) == 0 {
		return nil, errors.New("endpoint: at least one endpoint is required")
	}
	if dial == nil {
		return nil, errors.New("endpoint: dialer is required")
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	s := &Selector[T]{
		urls: append([]string(nil), urls...),
		dial: dial,
		opts: opts,
	}
	if opts.CacheTTL > 0 {
		s.known = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return s, nil
}

// Endpoints returns the candidate list in preference order.
func (s *Selector[T]) Endpoints() []string {
	return append([]string(nil), s.urls...)
}

// Select runs one attempt cycle and returns the first healthy endpoint's
// handle and URL. The caller owns the handle and must Close it. When every
// candidate fails, the error is an *UnavailableError listing all attempts.
func (s *Selector[T]) Select(ctx context.Context) (T, string, error) {
	var zero T
	attempts := make([]Attempt, 0, len(s.urls))
	skip := -1

	if idx, ok := s.lastGood(); ok {
		h, a := s.probe(ctx, s.urls[idx])
		if a.State == StateHealthy {
			return h, a.URL, nil
		}
		s.forget()
		attempts = append(attempts, a)
		skip = idx
	}

	order := make([]int, 0, len(s.urls))
	for i := range s.urls {
		if i != skip {
			order = append(order, i)
		}
	}

	var (
		h      T
		winner = -1
		rest   []Attempt
	)
	if s.opts.Concurrent && len(order) > 1 {
		h, winner, rest = s.selectConcurrent(ctx, order)
	} else {
		h, winner, rest = s.selectSequential(ctx, order)
	}
	if winner >= 0 {
		s.remember(winner)
		return h, s.urls[winner], nil
	}
	attempts = append(attempts, rest...)

	if err := ctx.Err(); err != nil {
		return zero, "", fmt.Errorf("endpoint: selection cancelled: %w", err)
	}
	return zero, "", &UnavailableError{Attempts: attempts}
}

// Probe checks every endpoint and reports each outcome without selecting
// one. Handles are closed before returning.
func (s *Selector[T]) Probe(ctx context.Context) []Attempt {
	out := make([]Attempt, len(s.urls))
	for i, u := range s.urls {
		h, a := s.probe(ctx, u)
		if a.State == StateHealthy {
			closeHandle(h, u)
		}
		out[i] = a
	}
	return out
}

func (s *Selector[T]) selectSequential(ctx context.Context, order []int) (T, int, []Attempt) {
	var zero T
	attempts := make([]Attempt, 0, len(order))
	for _, i := range order {
		if ctx.Err() != nil {
			break
		}
		h, a := s.probe(ctx, s.urls[i])
		if a.State == StateHealthy {
			return h, i, attempts
		}
		attempts = append(attempts, a)
	}
	return zero, -1, attempts
}

type probeResult[T Handle] struct {
	handle  T
	attempt Attempt
}

// selectConcurrent probes all candidates with bounded parallelism, then
// consumes results in list order so the lowest healthy index wins.
func (s *Selector[T]) selectConcurrent(ctx context.Context, order []int) (T, int, []Attempt) {
	var zero T
	probeCtx, cancel := context.WithCancel(ctx)
	sem := semaphore.NewWeighted(int64(s.opts.MaxConcurrent))

	results := make([]chan probeResult[T], len(order))
	for n, i := range order {
		ch := make(chan probeResult[T], 1)
		results[n] = ch
		go func(url string) {
			if err := sem.Acquire(probeCtx, 1); err != nil {
				ch <- probeResult[T]{attempt: Attempt{URL: url, State: StateUnreachable, Err: err}}
				return
			}
			defer sem.Release(1)
			h, a := s.probe(probeCtx, url)
			ch <- probeResult[T]{handle: h, attempt: a}
		}(s.urls[i])
	}

	attempts := make([]Attempt, 0, len(order))
	for n, i := range order {
		r := <-results[n]
		if r.attempt.State == StateHealthy {
			cancel()
			go drain(results[n+1:])
			return r.handle, i, attempts
		}
		attempts = append(attempts, r.attempt)
	}
	cancel()
	return zero, -1, attempts
}

// drain closes handles of losing probes that still came back healthy.
func drain[T Handle](pending []chan probeResult[T]) {
	for _, ch := range pending {
		r := <-ch
		if r.attempt.State == StateHealthy {
			closeHandle(r.handle, r.attempt.URL)
		}
	}
}

func (s *Selector[T]) probe(ctx context.Context, url string) (T, Attempt) {
	var zero T
	zap.L().Debug("Trying storage endpoint", zap.String("endpoint", url))

	if s.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ProbeTimeout)
		defer cancel()
	}

	start := time.Now()
	h, err := s.dial(ctx, url)
	if err == nil {
		if err = h.Health(ctx); err != nil {
			closeHandle(h, url)
		}
	}
	a := Attempt{URL: url, Latency: time.Since(start)}
	if err != nil {
		a.State = StateUnreachable
		a.Err = err
		zap.L().Warn("Storage endpoint failed", zap.String("endpoint", url), zap.Duration("latency", a.Latency), zap.Error(err))
		return zero, a
	}
	a.State = StateHealthy
	zap.L().Info("Connected to storage endpoint", zap.String("endpoint", url), zap.Duration("latency", a.Latency))
	return h, a
}

func (s *Selector[T]) lastGood() (int, bool) {
	if s.known == nil {
		return 0, false
	}
	v, ok := s.known.Get(lastGoodKey)
	if !ok {
		return 0, false
	}
	idx, ok := v.(int)
	if !ok || idx < 0 || idx >= len(s.urls) {
		return 0, false
	}
	return idx, true
}

func (s *Selector[T]) remember(idx int) {
	if s.known != nil {
		s.known.Set(lastGoodKey, idx, cache.DefaultExpiration)
	}
}

func (s *Selector[T]) forget() {
	if s.known != nil {
		s.known.Delete(lastGoodKey)
	}
}

func closeHandle[T Handle](h T, url string) {
	if err := h.Close(); err != nil {
		zap.L().Debug("failed to close endpoint handle", zap.String("endpoint", url), zap.Error(err))
	}
}
