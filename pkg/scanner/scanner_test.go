package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytscan/pkg/checkpoint"
	errs "ytscan/pkg/errors"
	"ytscan/pkg/keyspace"
	"ytscan/pkg/logger"
	"ytscan/pkg/prober"
	"ytscan/pkg/ratelimit"
	"ytscan/pkg/results"
)

func testSpace(t *testing.T) *keyspace.Space {
	t.Helper()
	alphabet, err := keyspace.NewAlphabet("abc")
	require.NoError(t, err)
	space, err := keyspace.NewSpace(alphabet, 3)
	require.NoError(t, err)
	return space
}

type fakeProber struct {
	found       map[string]string
	delay       func(id string) time.Duration
	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeProber) Probe(ctx context.Context, id string) prober.Outcome {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if f.delay != nil {
		time.Sleep(f.delay(id))
	}
	if title, ok := f.found[id]; ok {
		return prober.Outcome{Status: prober.Found, Title: title}
	}
	return prober.Outcome{Status: prober.NotFound}
}

func (f *fakeProber) URL(id string) string {
	return "http://test/" + id
}

type memStore struct {
	mu      sync.Mutex
	start   keyspace.Vector
	saves   []keyspace.Vector
	failAt  int
	loadErr error
}

func (m *memStore) Load() (keyspace.Vector, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.start.Clone(), nil
}

func (m *memStore) Save(v keyspace.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt > 0 && len(m.saves)+1 == m.failAt {
		return errs.Storage("save", errors.New("disk full"))
	}
	m.saves = append(m.saves, v.Clone())
	return nil
}

func (m *memStore) Saves() []keyspace.Vector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.saves)
}

type memSink struct {
	records   []results.FoundRecord
	finalized int
}

func (m *memSink) Record(r results.FoundRecord) { m.records = append(m.records, r) }
func (m *memSink) Finalize() (int, error) {
	m.finalized++
	return len(m.records), nil
}

type recordingObserver struct {
	started  keyspace.Vector
	size     *big.Int
	results  []Result
	finished *Report
	onResult func(Result)
}

func (o *recordingObserver) OnStart(start keyspace.Vector, remaining *big.Int) {
	o.started = start
	o.size = remaining
}

func (o *recordingObserver) OnResult(r Result) {
	o.results = append(o.results, r)
	if o.onResult != nil {
		o.onResult(r)
	}
}

func (o *recordingObserver) OnFinish(r Report) {
	o.finished = &r
}

func jitterDelay(id string) time.Duration {
	return time.Duration(int(id[len(id)-1])%4) * time.Millisecond
}

func TestRunCheckpointsInEnumerationOrder(t *testing.T) {
	space := testSpace(t)
	all := slices.Collect(space.Enumerate(space.Origin()))

	p := &fakeProber{found: map[string]string{"cab": "Second", "abc": "First"}, delay: jitterDelay}
	store := &memStore{start: space.Origin()}
	sink := &memSink{}
	obs := &recordingObserver{}

	s := New(space, p, store, sink, Options{Concurrency: 4, Observer: obs}, logger.NewNopLogger())
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, report.State)
	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, int64(27), report.Probed)
	assert.Equal(t, int64(2), report.Found)
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, keyspace.Vector{2, 2, 2}, report.Last)

	assert.Equal(t, all, store.Saves())
	assert.Equal(t, 1, sink.finalized)
	require.Len(t, sink.records, 2)
	assert.Equal(t, results.FoundRecord{ID: "abc", Title: "First", URL: "http://test/abc"}, sink.records[0])
	assert.Equal(t, "cab", sink.records[1].ID)

	require.Len(t, obs.results, 27)
	for i, r := range obs.results {
		assert.Equal(t, all[i], r.Position)
		assert.Equal(t, space.Encode(all[i]), r.ID)
	}
	assert.Equal(t, "27", obs.size.String())
	require.NotNil(t, obs.finished)
	assert.Equal(t, StateCompleted, obs.finished.State)
}

func TestConcurrencyBound(t *testing.T) {
	space := testSpace(t)
	p := &fakeProber{delay: func(string) time.Duration { return 2 * time.Millisecond }}

	s := New(space, p, &memStore{start: space.Origin()}, &memSink{}, Options{Concurrency: 3}, logger.NewNopLogger())
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.LessOrEqual(t, p.maxInFlight.Load(), int32(3))
	assert.Equal(t, int32(27), p.calls.Load())
}

func TestResumeIsAnchoredAtCheckpoint(t *testing.T) {
	space := testSpace(t)
	start := keyspace.Vector{1, 1, 0}
	p := &fakeProber{}
	store := &memStore{start: start}

	s := New(space, p, store, &memSink{}, Options{Concurrency: 2}, logger.NewNopLogger())
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	saves := store.Saves()
	// positions 1 and 2 never drop below their start bounds
	assert.Equal(t, int64(2*2*3), report.Probed)
	assert.Equal(t, start, saves[0])
	assert.Equal(t, keyspace.Vector{1, 1, 1}, saves[1])
	assert.Equal(t, keyspace.Vector{1, 2, 2}, saves[5])
	assert.Equal(t, keyspace.Vector{2, 1, 0}, saves[6])
	assert.Equal(t, start, report.Start)
}

func TestResumeAfterInterruption(t *testing.T) {
	space := testSpace(t)
	all := slices.Collect(space.Enumerate(space.Origin()))

	// first run stops after ten classifications
	ctx, cancel := context.WithCancel(context.Background())
	store := &memStore{start: space.Origin()}
	obs := &recordingObserver{onResult: func(r Result) {
		if r.ID == "abb" {
			cancel()
		}
	}}
	first := New(space, &fakeProber{}, store, &memSink{}, Options{Concurrency: 2, Observer: obs}, logger.NewNopLogger())
	report, err := first.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, StateCancelled, report.State)

	saves := store.Saves()
	require.Equal(t, all[:len(saves)], saves, "checkpoints form a gap-free prefix")
	// the three probes dispatched behind "abb" are drained too
	require.Len(t, saves, 8)

	// second run continues from the stored checkpoint
	resumed := &memStore{start: report.Last}
	second := New(space, &fakeProber{}, resumed, &memSink{}, Options{Concurrency: 2}, logger.NewNopLogger())
	_, err = second.Run(context.Background())
	require.NoError(t, err)

	got := resumed.Saves()
	assert.Equal(t, report.Last, got[0], "resume re-probes only the checkpointed position")
	assert.Equal(t, all[len(saves)], got[1])
}

func TestCancellationDrainsInFlight(t *testing.T) {
	space := testSpace(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakeProber{delay: jitterDelay}
	store := &memStore{start: space.Origin()}
	sink := &memSink{}
	obs := &recordingObserver{onResult: func(r Result) {
		if r.ID == "aac" {
			cancel()
		}
	}}

	s := New(space, p, store, sink, Options{Concurrency: 4, Observer: obs}, logger.NewNopLogger())
	report, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, report.State)
	assert.Equal(t, 1, sink.finalized)
	// every dispatched probe was classified and checkpointed
	assert.Equal(t, int(p.calls.Load()), len(store.Saves()))
	assert.Less(t, len(store.Saves()), 27)
	assert.Equal(t, int64(len(store.Saves())), report.Probed)
}

func TestCancelledBeforeStart(t *testing.T) {
	space := testSpace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProber{}
	sink := &memSink{}
	s := New(space, p, &memStore{start: space.Origin()}, sink, Options{Concurrency: 2}, logger.NewNopLogger())
	report, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, report.State)
	assert.Equal(t, int32(0), p.calls.Load())
	assert.Equal(t, 1, sink.finalized)
	assert.Equal(t, space.Origin(), report.Last)
}

func TestFatalStorageError(t *testing.T) {
	space := testSpace(t)
	p := &fakeProber{found: map[string]string{"aaa": "Hit"}}
	store := &memStore{start: space.Origin(), failAt: 4}
	sink := &memSink{}
	log := logger.NewTestLogger()

	s := New(space, p, store, sink, Options{Concurrency: 2}, log)
	report, err := s.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.True(t, errs.IsFatal(err))
	assert.Equal(t, StateFailed, report.State)
	assert.Len(t, store.Saves(), 3)
	assert.Equal(t, keyspace.Vector{0, 0, 2}, report.Last)
	assert.Equal(t, 1, sink.finalized, "collected hits are still written")
	assert.Less(t, p.calls.Load(), int32(27))
	assert.True(t, log.HasMessage("Failed to save checkpoint"))
}

func TestLoadFailure(t *testing.T) {
	space := testSpace(t)
	store := &memStore{loadErr: errs.Storage("load", errors.New("unreadable"))}
	sink := &memSink{}

	s := New(space, &fakeProber{}, store, sink, Options{}, logger.NewNopLogger())
	report, err := s.Run(context.Background())

	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, 0, sink.finalized)
}

func TestRunTwice(t *testing.T) {
	space := testSpace(t)
	s := New(space, &fakeProber{}, &memStore{start: space.Last()}, &memSink{}, Options{}, logger.NewNopLogger())

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Probed)

	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestGentleModeDelays(t *testing.T) {
	space := testSpace(t)
	start := keyspace.Vector{2, 2, 0}
	gentle := ratelimit.NewJitter(10*time.Millisecond, 10*time.Millisecond)

	s := New(space, &fakeProber{}, &memStore{start: start}, &memSink{}, Options{Concurrency: 4, Gentle: gentle}, logger.NewNopLogger())
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Probed)
	// no delay after the final classification
	assert.GreaterOrEqual(t, report.Elapsed, 20*time.Millisecond)
}

func TestGentleModeCancelDuringDelay(t *testing.T) {
	space := testSpace(t)
	gentle := ratelimit.NewJitter(time.Hour, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	store := &memStore{start: space.Origin()}
	p := &fakeProber{}
	s := New(space, p, store, &memSink{}, Options{Concurrency: 2, Gentle: gentle}, logger.NewNopLogger())
	report, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, report.State)
	assert.Equal(t, int(p.calls.Load()), len(store.Saves()))
}

func TestProgressLogging(t *testing.T) {
	space := testSpace(t)
	log := logger.NewTestLogger()

	s := New(space, &fakeProber{}, &memStore{start: space.Origin()}, &memSink{}, Options{Concurrency: 2, ProgressInterval: 10}, log)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	progress := 0
	for _, m := range log.GetMessages() {
		if m.Message == "Scan progress" {
			progress++
			assert.Contains(t, m.Fields, "in_flight")
		}
	}
	assert.Equal(t, 2, progress)
	assert.True(t, log.HasMessage("Scan finished"))
}

func TestFinishLogsPoolStats(t *testing.T) {
	space := testSpace(t)
	log := logger.NewTestLogger()

	s := New(space, &fakeProber{}, &memStore{start: space.Origin()}, &memSink{}, Options{Concurrency: 3}, log)
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	var started, finished *logger.LogMessage
	for _, m := range log.GetMessages() {
		switch m.Message {
		case "Scan started":
			started = &m
		case "Scan finished":
			finished = &m
		}
	}
	require.NotNil(t, started)
	require.NotNil(t, finished)

	assert.Equal(t, 3, started.Fields["concurrency"])
	assert.Equal(t, report.Probed, finished.Fields["completed"])
	peak, ok := finished.Fields["peak"].(int)
	require.True(t, ok)
	assert.GreaterOrEqual(t, peak, 1)
	assert.LessOrEqual(t, peak, 3)
}

func TestEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")
		switch {
		case id == "cc":
			w.WriteHeader(http.StatusInternalServerError)
		case strings.HasPrefix(id, "b"):
			fmt.Fprintf(w, "<html><head><title>Clip %s</title></head></html>", id)
		default:
			fmt.Fprint(w, "<html><head><title>Video - YouTube</title></head></html>")
		}
	}))
	defer srv.Close()

	alphabet, err := keyspace.NewAlphabet("abc")
	require.NoError(t, err)
	space, err := keyspace.NewSpace(alphabet, 2)
	require.NoError(t, err)

	dir := t.TempDir()
	log := logger.NewNopLogger()
	store, err := checkpoint.NewStore(filepath.Join(dir, "lastyt"), space, log)
	require.NoError(t, err)
	foundPath := filepath.Join(dir, "ytfound.csv")
	sink, err := results.NewSink(foundPath, results.FormatCSV, log)
	require.NoError(t, err)
	client := prober.NewClient(prober.Options{
		BaseURL:           srv.URL,
		Timeout:           2 * time.Second,
		PlaceholderTitles: []string{"Video - YouTube"},
	}, log)

	s := New(space, client, store, sink, Options{Concurrency: 3}, log)
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), report.Probed)
	assert.Equal(t, int64(3), report.Found)

	last, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, keyspace.Vector{2, 2}, last)

	data, err := os.ReadFile(foundPath)
	require.NoError(t, err)
	assert.Equal(t, "identifier,title,url\n"+
		"ba,Clip ba,"+srv.URL+"/ba\n"+
		"bb,Clip bb,"+srv.URL+"/bb\n"+
		"bc,Clip bc,"+srv.URL+"/bc\n", string(data))
}

func TestEmptyScanRemovesStaleFoundFile(t *testing.T) {
	space := testSpace(t)
	dir := t.TempDir()
	foundPath := filepath.Join(dir, "ytfound.csv")
	require.NoError(t, os.WriteFile(foundPath, []byte("identifier,title,url\nold,Old,u\n"), 0o644))

	sink, err := results.NewSink(foundPath, results.FormatCSV, logger.NewNopLogger())
	require.NoError(t, err)

	s := New(space, &fakeProber{}, &memStore{start: space.Origin()}, sink, Options{Concurrency: 4}, logger.NewNopLogger())
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Written)
	_, err = os.Stat(foundPath)
	assert.True(t, os.IsNotExist(err))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestReportPerMinute(t *testing.T) {
	r := Report{Probed: 30, Elapsed: 30 * time.Second}
	assert.InDelta(t, 60.0, r.PerMinute(), 0.001)
	assert.Equal(t, 0.0, Report{}.PerMinute())
}
