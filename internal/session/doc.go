// Package session is the entry point to a page being annotated. A Session
// owns the coordinator loop, the worker pool and every piece of mutable
// state, and serializes user gestures into commands.
//
// # Why Session Exists
//
// Commands, hull jobs and the annotation index all assume a single writer.
// Session is that writer: every public method either posts work to the
// coordinator and returns a future, or posts and waits. Nothing outside the
// coordinator touches the model, so no locks guard it.
package session
