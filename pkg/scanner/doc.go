// Package scanner drives a scan over an identifier space.
//
// A Scanner loads the stored checkpoint, enumerates the space from it and
// hands each identifier to a Prober through a bounded dispatch pool. One
// coordinating goroutine drains finished probes strictly in dispatch
// order: it records hits, notifies the Observer and saves the checkpoint
// before looking at the next probe. The checkpoint therefore always names
// a position whose predecessors have all been classified.
//
// Lifecycle:
//
//	Idle -> Running -> Completed | Cancelled | Failed
//
// Cancelling the context stops new dispatches. Probes already running
// finish and are checkpointed, then results are finalized and Run returns
// a Cancelled report with a nil error. A checkpoint that cannot be written
// aborts the scan with a storage error.
//
// Usage:
//
//	s := scanner.New(space, client, store, sink, scanner.Options{
//	    Concurrency: 10,
//	    Gentle:      ratelimit.NewJitter(time.Second, 4*time.Second),
//	}, log)
//	report, err := s.Run(ctx)
package scanner
