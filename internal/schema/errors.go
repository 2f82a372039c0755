package schema

import (
	"errors"
	"fmt"
)

// ErrInvalidToken is wrapped by MalformedRowError when a cell holds a token
// outside its accepted set.
var ErrInvalidToken = errors.New("invalid token")

// MalformedRowError reports an input row that cannot be normalized.
type MalformedRowError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *MalformedRowError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// MissingPairError reports one half of a required pair present without the
// other, such as a virtual flag without its expression.
type MissingPairError struct {
	Have    string
	Missing string
}

func (e *MissingPairError) Error() string {
	return fmt.Sprintf("%s is set but %s is empty", e.Have, e.Missing)
}

// DuplicateEntityError reports a name used twice within its namespace.
type DuplicateEntityError struct {
	Kind  string // "table", "column" or "index"
	Name  string
	Table string
	Line  int
}

func (e *DuplicateEntityError) Error() string {
	var where string
	if e.Line > 0 {
		where = fmt.Sprintf("line %d: ", e.Line)
	}
	if e.Table == "" {
		return fmt.Sprintf("%sduplicate %s %s", where, e.Kind, e.Name)
	}
	return fmt.Sprintf("%sduplicate %s %s in %s", where, e.Kind, e.Name, e.Table)
}

func malformed(line int, field, value string, err error) error {
	return &MalformedRowError{Line: line, Field: field, Value: value, Err: err}
}

func missingPair(line int, have, missing string) error {
	return &MalformedRowError{
		Line:  line,
		Field: have,
		Err:   &MissingPairError{Have: have, Missing: missing},
	}
}
