package dao

// Parameter names understood by the criteria package
const (
	ParamState     = "State"
	ParamExcludeID = "ExcludeID"
	ParamSessionID = "SessionID"
)

type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
