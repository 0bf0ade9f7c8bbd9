// Package errors derives metric-friendly class names from Go errors.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"
)

// Classify reduces an error to a low-cardinality type name usable as a
// metric tag or log field. Wrapping layers carry little signal, so the error
// is unwrapped to its innermost cause first.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
