// Package command implements the undoable user operations on a session:
// deleting an edge and adding or removing an annotation.
//
// # Why Commands Exist
//
// Every user gesture mutates the partition model in two phases. The first
// runs on the coordinator and takes snapshots, the second waits for
// background hull or split jobs and only then commits. A command keeps the
// snapshots of both phases so that a failed job rolls back cleanly and a
// successful one can be undone later without recomputing any geometry.
//
// # Threading
//
// All methods of Env and of every Command must be called on the coordinator
// goroutine (the pipeline.Loop). Only the job bodies run on the pool.
package command
