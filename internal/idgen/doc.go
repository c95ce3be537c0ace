// Package idgen issues identifiers: random UUIDs for sessions and monotonic,
// process-unique sequence ids for jobs. Both generators can be stubbed in tests.
package idgen
