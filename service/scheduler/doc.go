// Package scheduler admits jobs. A non-locking job starts at once; a locking
// job starts only when a parallel slot is free and the lock manager grants its
// whole lock set, otherwise it waits in arrival order. Slots and grants are
// decided together under one mutex, and every terminal transition re-runs
// dispatch so waiters are woken.
package scheduler
