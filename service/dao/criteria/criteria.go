package criteria

import (
	"slices"

	"github.com/viant/jobgate/service/dao"
)

// Match returns true when an entity with the supplied state, id and session
// satisfies every parameter. Unknown parameters are ignored.
func Match(state, id, sessionID string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		switch parameter.Name {
		case dao.ParamState:
			if !matches(state, parameter.Value) {
				return false
			}
		case dao.ParamSessionID:
			if !matches(sessionID, parameter.Value) {
				return false
			}
		case dao.ParamExcludeID:
			if matches(id, parameter.Value) {
				return false
			}
		}
	}
	return true
}

func matches(value string, expect interface{}) bool {
	switch actual := expect.(type) {
	case string:
		return value == actual
	case []string:
		return slices.Contains(actual, value)
	}
	return false
}
