// Package errors derives stable tag values from Go errors so metrics and
// logs can group failures by kind rather than by message text.
package errors

import (
	"reflect"
	"strings"
)

// Classify names the innermost error's concrete type in a metrics-safe form:
// lowercase, package-qualified with underscores (for example
// "pgconn_pgerror" or "net_operror"). Returns "" for nil errors and
// "unknown" when no type name can be derived.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	// The innermost error carries the most signal; wrapping layers usually
	// just add call-site prefixes.
	for {
		switch unwrapped := err.(type) {
		case interface{ Unwrap() error }:
			inner := unwrapped.Unwrap()
			if inner == nil {
				return typeName(err)
			}
			err = inner
		case interface{ Unwrap() []error }:
			// Joined errors: classify by the first branch.
			inners := unwrapped.Unwrap()
			if len(inners) == 0 || inners[0] == nil {
				return typeName(err)
			}
			err = inners[0]
		default:
			return typeName(err)
		}
	}
}

func typeName(err error) string {
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
