package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate means two records share a path name or identifier.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound means a lookup key has no record.
	ErrNotFound = errors.New("no such page")
	// ErrInvalid means the sources document or a record is malformed.
	ErrInvalid = errors.New("invalid sources")
)

// Record field names as they appear in sources.yaml.
const (
	FieldPathName        = "pathName"
	FieldPageTitle       = "pageTitle"
	FieldNamedIdentifier = "namedIdentifier"
)

// ConfigError reports a registry configuration problem. All of them are
// content-author errors and are meant to stop the build.
type ConfigError struct {
	Op     string // load, parse, resolve, lookup
	Field  string
	Key    string
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "registry " + e.Op
	if e.Field != "" && e.Key != "" {
		msg += fmt.Sprintf(" %s %q", e.Field, e.Key)
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }
