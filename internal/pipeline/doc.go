// Package pipeline runs geometry work off the coordinator goroutine.
//
// # Why Pipeline Package Exists
//
// Concave hulls and connectivity checks are too slow to run while a user
// is drawing, but every mutation of the partition model must happen on one
// goroutine. The pipeline splits the two: a Pool of workers computes job
// bodies on value snapshots, and continuations hop back onto the Loop, the
// single coordinator goroutine that owns the model.
//
// # Futures
//
// Every job is a Future. A future reaches exactly one terminal status
// (Succeeded, Failed or Cancelled) and runs its completion hooks exactly once.
// Cancel is synchronous: once it returns, a late result from the worker is
// dropped, so a superseded job can never overwrite fresh geometry.
//
// JoinAll waits for a set of futures and posts one continuation to the Loop
// when the last of them is terminal:
//
//	pipeline.JoinAll(loop, func(st []pipeline.Status) {
//	    if pipeline.AllSucceeded(st) {
//	        // apply both results
//	    }
//	}, hullA, hullB)
//
// # Job Kinds
//
// RunHull recomputes the hulls of a group's partitions and their union.
// RunSplit finds the smallest connected component of a partition after an
// edge removal. Both take snapshots and never touch live model objects.
package pipeline
