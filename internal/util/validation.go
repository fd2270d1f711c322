package util

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// NotNil returns an ArgumentError when value is nil, including typed nil
// pointers, maps, slices, funcs, channels and interfaces.
func NotNil(value any, name string) error {
	if IsNil(value) {
		return NewArgumentError(name, "must not be nil")
	}
	return nil
}

// IsNil reports whether value is nil or a typed nil.
func IsNil(value any) bool {
	if value == nil {
		return true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// NotBlank validates that value is neither empty nor whitespace only and that
// its length (in runes) lies within [minLength, maxLength]. A maxLength of 0
// means unbounded.
func NotBlank(value, name string, maxLength, minLength int) (string, error) {
	if strings.TrimSpace(value) == "" {
		return value, NewArgumentError(name, "must not be empty or whitespace")
	}
	return Length(value, name, maxLength, minLength)
}

// NotEmptyString validates that value is not empty and that its length lies
// within bounds. Whitespace-only strings are accepted.
func NotEmptyString(value, name string, maxLength, minLength int) (string, error) {
	if value == "" {
		return value, NewArgumentError(name, "must not be empty")
	}
	return Length(value, name, maxLength, minLength)
}

// Length validates the rune length of value. Empty values pass; a maxLength
// of 0 means unbounded.
func Length(value, name string, maxLength, minLength int) (string, error) {
	if value == "" {
		return value, nil
	}

	n := utf8.RuneCountInString(value)
	if maxLength > 0 && n > maxLength {
		return value, NewArgumentError(name, fmt.Sprintf("length must be equal to or lower than %d", maxLength))
	}
	if minLength > 0 && n < minLength {
		return value, NewArgumentError(name, fmt.Sprintf("length must be equal to or bigger than %d", minLength))
	}

	return value, nil
}
