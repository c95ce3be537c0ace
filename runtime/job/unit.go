package job

import "github.com/viant/jobgate/model/lock"

// Unit represents a compiled unit of work supplied by the evaluator.
//
// Accesses reports every database the unit may touch; a target computed at
// evaluation time is reported as dynamic. Run executes the unit and is
// expected to call Context.Safepoint (or watch Context.Done) between steps so
// that a stop request is observed promptly.
type Unit interface {
	Kind() Kind
	Accesses() ([]lock.Access, error)
	Run(ctx *Context) (interface{}, error)
}
