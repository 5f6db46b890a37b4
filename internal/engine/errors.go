package engine

import (
	"errors"
	"fmt"
)

// ErrAmbiguousValueColumn is returned when the emissions source has more than
// one candidate value column and none was configured.
var ErrAmbiguousValueColumn = errors.New("ambiguous emissions value column")

// DataSourceError reports a required input that is missing or unparseable.
// It is fatal: no dashboard is served from partial inputs.
type DataSourceError struct {
	Source string
	Op     string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// InvalidFilterError reports a malformed view parameter.
type InvalidFilterError struct {
	Field  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Field, e.Reason)
}

func sourceErr(source, op string, err error) error {
	return &DataSourceError{Source: source, Op: op, Err: err}
}

// IsDataSourceError reports whether err is or wraps a DataSourceError.
func IsDataSourceError(err error) bool {
	var dse *DataSourceError
	return errors.As(err, &dse)
}

// IsInvalidFilter reports whether err is or wraps an InvalidFilterError.
func IsInvalidFilter(err error) bool {
	var ife *InvalidFilterError
	return errors.As(err, &ife)
}
