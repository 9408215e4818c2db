// Package graph is the partition model: the working page graph split into
// connected components (Partitions) that are grouped into visible regions
// (Groups).
//
// # Why Graph Package Exists
//
// Every user gesture ends as a change of membership: an edge leaves a
// partition, a partition is carved in two, partitions move between groups.
// The package keeps those moves honest. A vertex is owned by exactly one
// partition and a partition by at most one group, and the Model is the only
// place that changes either.
//
// # Ownership
//
// Partitions move between groups through a Detached handle:
//
//	d := model.Detach(p)        // p leaves its group
//	err := model.Attach(dst, d) // p joins dst
//
// A Detached value is only produced by Detach, NewPartition and Carve.
// Attaching a partition that is still owned by a group fails with
// ErrPartitionOwned, so a partition can never be aliased into two groups.
//
// # Soft Deletion
//
// Edges are never removed from the Model. Deleting an edge flips its Deleted
// flag and drops it from its partition. The spatial index keeps referencing
// the edge and hit-testing filters it out.
//
// # Thread-Safety
//
// None. The Model is owned by the session coordinator. Background jobs work
// on Topology and point snapshots, never on live partitions.
package graph
