package scanner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"ytscan/internal/dispatch"
	errs "ytscan/pkg/errors"
	"ytscan/pkg/keyspace"
	"ytscan/pkg/logger"
	"ytscan/pkg/metrics"
	"ytscan/pkg/prober"
	"ytscan/pkg/ratelimit"
	"ytscan/pkg/results"
)

// State is the lifecycle stage of a Scanner
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrAlreadyStarted is returned when Run is called twice
var ErrAlreadyStarted = errors.New("scanner already started")

// Result describes one classified identifier
type Result struct {
	Position keyspace.Vector
	ID       string
	URL      string
	Outcome  prober.Outcome
	Duration time.Duration
}

// Report summarises a finished scan
type Report struct {
	State   State
	Start   keyspace.Vector
	Last    keyspace.Vector
	Probed  int64
	Found   int64
	Written int
	Elapsed time.Duration
}

// PerMinute returns the classification rate
func (r Report) PerMinute() float64 {
	if m := r.Elapsed.Minutes(); m > 0 {
		return float64(r.Probed) / m
	}
	return 0
}

// Options tunes a Scanner
type Options struct {
	// Concurrency caps the number of probes in flight
	Concurrency int
	// Window is how many probes may be dispatched ahead of the oldest
	// unclassified one. Defaults to twice Concurrency.
	Window int
	// Gentle, when set, delays after every classification
	Gentle *ratelimit.Jitter
	// RateLimit is waited on before every dispatch
	RateLimit ratelimit.Limiter
	// ProgressInterval logs progress every n classifications; 0 disables
	ProgressInterval int
	Observer         Observer
}

// Scanner walks an identifier space from the stored checkpoint, probing
// every identifier and advancing the checkpoint in enumeration order
type Scanner struct {
	space  *keyspace.Space
	prober Prober
	store  CheckpointStore
	sink   ResultSink
	opts   Options
	state  atomic.Int32
	logger logger.Logger
}

// New creates a Scanner
func New(space *keyspace.Space, p Prober, store CheckpointStore, sink ResultSink, opts Options, log logger.Logger) *Scanner {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Window < opts.Concurrency {
		opts.Window = 2 * opts.Concurrency
	}
	if opts.RateLimit == nil {
		opts.RateLimit = ratelimit.Unlimited{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	metrics.Init()

	return &Scanner{
		space:  space,
		prober: p,
		store:  store,
		sink:   sink,
		opts:   opts,
		logger: log.WithField("component", "scanner"),
	}
}

// State returns the current lifecycle stage
func (s *Scanner) State() State {
	return State(s.state.Load())
}

// pendingProbe is a dispatched probe awaiting classification
type pendingProbe struct {
	position keyspace.Vector
	id       string
	future   *dispatch.Future[probeResult]
}

type probeResult struct {
	outcome  prober.Outcome
	duration time.Duration
}

// Run scans until the space is exhausted or ctx is cancelled. A
// cancelled scan stops dispatching, lets in-flight probes finish and
// checkpoints them, then finalizes results; it is reported through
// Report.State, not as an error. Storage failures abort the scan and are
// returned.
func (s *Scanner) Run(ctx context.Context) (Report, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return Report{State: s.State()}, ErrAlreadyStarted
	}

	began := time.Now()
	report := Report{State: StateRunning}

	start, err := s.store.Load()
	if err != nil {
		s.logger.WithError(err).Error("Failed to load checkpoint")
		report.State = StateFailed
		s.state.Store(int32(StateFailed))
		return report, err
	}
	report.Start = start
	report.Last = start

	pool := dispatch.NewPool(s.opts.Concurrency, s.logger)

	remaining := s.space.Size(start)
	s.logger.InfoWithFields("Scan started", map[string]interface{}{
		"start":       keyspace.FormatVector(start),
		"id":          s.space.Encode(start),
		"remaining":   remaining.String(),
		"concurrency": pool.Size(),
		"gentle":      s.opts.Gentle != nil,
	})
	s.opts.Observer.OnStart(start.Clone(), remaining)
	next, stop := iter.Pull(s.space.Enumerate(start))
	defer stop()

	var (
		pending   []pendingProbe
		exhausted bool
		cancelled bool
		fatal     error
	)

	for fatal == nil {
		// Keep the window full
		for !cancelled && !exhausted && len(pending) < s.opts.Window {
			if ctx.Err() != nil {
				cancelled = true
				break
			}
			v, ok := next()
			if !ok {
				exhausted = true
				break
			}
			if err := s.opts.RateLimit.Wait(ctx); err != nil {
				cancelled = true
				break
			}
			p, err := s.dispatch(ctx, pool, v)
			if err != nil {
				cancelled = true
				break
			}
			pending = append(pending, p)
		}

		if len(pending) == 0 {
			break
		}

		head := pending[0]
		pending = pending[1:]
		res := head.future.Wait()

		if err := s.classify(head, res, &report); err != nil {
			fatal = err
			break
		}

		if s.opts.ProgressInterval > 0 && report.Probed%int64(s.opts.ProgressInterval) == 0 {
			logger.LogScanProgress(s.logger.WithField("in_flight", pool.InFlight()), head.id, report.Probed, report.Found, time.Since(began))
		}

		if s.opts.Gentle != nil && !cancelled && !(exhausted && len(pending) == 0) {
			d := s.opts.Gentle.Next()
			metrics.ObserveGentleDelay(d)
			if err := ratelimit.Sleep(ctx, d); err != nil {
				cancelled = true
			}
		}
	}

	// Nothing is checkpointed after a fatal error, but probes already
	// running are waited for so none outlive Run.
	pool.Wait()

	written, ferr := s.sink.Finalize()
	report.Written = written
	report.Elapsed = time.Since(began)
	if ferr == nil {
		metrics.SetFoundRecords(written)
	}

	switch {
	case fatal != nil || ferr != nil:
		report.State = StateFailed
	case cancelled:
		report.State = StateCancelled
	default:
		report.State = StateCompleted
	}
	s.state.Store(int32(report.State))

	fields := map[string]interface{}{
		"state":     report.State.String(),
		"last":      keyspace.FormatVector(report.Last),
		"probed":    report.Probed,
		"found":     report.Found,
		"written":   report.Written,
		"elapsed":   report.Elapsed,
		"peak":      pool.Peak(),
		"completed": pool.Completed(),
	}
	if err := errors.Join(fatal, ferr); err != nil {
		s.logger.WithError(err).ErrorWithFields("Scan aborted", fields)
		s.opts.Observer.OnFinish(report)
		return report, err
	}
	s.logger.InfoWithFields("Scan finished", fields)
	s.opts.Observer.OnFinish(report)
	return report, nil
}

// dispatch encodes v and hands it to the pool
func (s *Scanner) dispatch(ctx context.Context, pool *dispatch.Pool, v keyspace.Vector) (pendingProbe, error) {
	id := s.space.Encode(v)
	f, err := dispatch.Submit(ctx, pool, func(taskCtx context.Context) probeResult {
		metrics.IncInflight()
		defer metrics.DecInflight()

		began := time.Now()
		outcome := s.prober.Probe(taskCtx, id)
		d := time.Since(began)
		metrics.ObserveProbe(outcome.Found(), d)
		return probeResult{outcome: outcome, duration: d}
	})
	if err != nil {
		return pendingProbe{}, err
	}
	return pendingProbe{position: v, id: id, future: f}, nil
}

// classify records a finished probe and advances the checkpoint to it
func (s *Scanner) classify(p pendingProbe, res probeResult, report *Report) error {
	url := s.prober.URL(p.id)
	if res.outcome.Found() {
		s.sink.Record(results.FoundRecord{ID: p.id, Title: res.outcome.Title, URL: url})
		report.Found++
	}
	report.Probed++

	s.opts.Observer.OnResult(Result{
		Position: p.position,
		ID:       p.id,
		URL:      url,
		Outcome:  res.outcome,
		Duration: res.duration,
	})

	err := s.store.Save(p.position)
	metrics.ObserveCheckpointWrite(err)
	if err != nil {
		if !errs.IsFatal(err) {
			err = errs.Storage("checkpoint", err)
		}
		s.logger.WithError(err).WithField("position", keyspace.FormatVector(p.position)).Error("Failed to save checkpoint")
		return err
	}
	report.Last = p.position
	return nil
}
