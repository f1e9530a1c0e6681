package scanner

import (
	"context"
	"math/big"

	"ytscan/pkg/keyspace"
	"ytscan/pkg/prober"
	"ytscan/pkg/results"
)

// Prober performs the existence check for one identifier
type Prober interface {
	Probe(ctx context.Context, id string) prober.Outcome
	URL(id string) string
}

// CheckpointStore persists the last fully classified position
type CheckpointStore interface {
	Load() (keyspace.Vector, error)
	Save(v keyspace.Vector) error
}

// ResultSink collects hits and writes them out at the end of a scan
type ResultSink interface {
	Record(r results.FoundRecord)
	Finalize() (int, error)
}

// Observer is notified from the coordinating goroutine as a scan runs
type Observer interface {
	OnStart(start keyspace.Vector, remaining *big.Int)
	OnResult(r Result)
	OnFinish(r Report)
}

type nopObserver struct{}

func (nopObserver) OnStart(keyspace.Vector, *big.Int) {}
func (nopObserver) OnResult(Result)                   {}
func (nopObserver) OnFinish(Report)                   {}
