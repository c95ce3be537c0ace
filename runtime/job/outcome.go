package job

// Outcome represents the terminal result slot of a job
type Outcome struct {
	State State
	Value interface{}
	Err   error
}

// Result returns value and error as seen by a submitter or waiter
func (o *Outcome) Result() (interface{}, error) {
	if o == nil {
		return nil, nil
	}
	switch o.State {
	case StateStopped:
		return nil, ErrStopped
	case StateFailed:
		return nil, o.Err
	}
	return o.Value, nil
}

// Finished returns a successful outcome
func Finished(value interface{}) *Outcome {
	return &Outcome{State: StateFinished, Value: value}
}

// Failed returns an outcome wrapping cause in EvaluationError
func Failed(jobID string, cause error) *Outcome {
	return &Outcome{State: StateFailed, Err: &EvaluationError{JobID: jobID, Cause: cause}}
}

// Stopped returns a stopped outcome
func Stopped() *Outcome {
	return &Outcome{State: StateStopped, Err: ErrStopped}
}
