// Package jobgate admits, locks and tracks jobs of a multi-user database
// engine.
//
// A job wraps a unit of work (a query or an administrative command) that
// declares up front which databases it reads or writes. Jobs that touch no
// database start at once; the others start when a parallel slot is free and
// their whole lock set can be granted. Running jobs can be listed, awaited
// and stopped from any session.
//
//	srv, _ := jobgate.New(jobgate.WithParallel(4))
//	rt := srv.Runtime()
//	id, _ := rt.Submit(ctx, "", aPlan)
//	value, err := rt.Wait(ctx, id)
//
// The sub-packages hold the pieces: model/lock (lock sets), service/lock
// (lock manager), runtime/job (job lifecycle), service/scheduler (admission),
// service/control (list, stop, wait) and model/plan (declarative units).
package jobgate
