// Package decode turns a raw trace message — a "provider:event_name"
// discriminator plus a flat map of named, typed fields, as delivered by
// the external trace reader — into a typed rawevents.Envelope.
package decode

import (
	"fmt"

	"github.com/cuemby/traceanalyzer/pkg/rawevents"
)

// RawFields is the flat, named/typed payload the trace reader hands the
// decoder for one event. Values are one of: bool, int64, uint64, string,
// or [rawevents.GIDSize]byte.
type RawFields map[string]any

// MissingFieldError is a hard decode error: a recognized event name
// whose payload is missing a field its schema requires.
type MissingFieldError struct {
	Event string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("decode %s: missing required field %q", e.Event, e.Field)
}

// WrongTypeError is a hard decode error: a field was present but not of
// the schema's expected type.
type WrongTypeError struct {
	Event string
	Field string
	Want  string
	Got   any
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("decode %s: field %q: want %s, got %T", e.Event, e.Field, e.Want, e.Got)
}

func getUint64(event string, f RawFields, name string) (uint64, error) {
	v, ok := f[name]
	if !ok {
		return 0, &MissingFieldError{Event: event, Field: name}
	}
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		return uint64(n), nil
	default:
		return 0, &WrongTypeError{Event: event, Field: name, Want: "uint64", Got: v}
	}
}

func getOptUint64(f RawFields, name string) *uint64 {
	v, ok := f[name]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case uint64:
		return &n
	case int64:
		u := uint64(n)
		return &u
	default:
		return nil
	}
}

func getInt64(event string, f RawFields, name string) (int64, error) {
	v, ok := f[name]
	if !ok {
		return 0, &MissingFieldError{Event: event, Field: name}
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, &WrongTypeError{Event: event, Field: name, Want: "int64", Got: v}
	}
}

func getOptInt64(f RawFields, name string) *int64 {
	v, ok := f[name]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case int64:
		return &n
	case uint64:
		i := int64(n)
		return &i
	default:
		return nil
	}
}

func getString(event string, f RawFields, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", &MissingFieldError{Event: event, Field: name}
	}
	s, ok := v.(string)
	if !ok {
		return "", &WrongTypeError{Event: event, Field: name, Want: "string", Got: v}
	}
	return s, nil
}

func getBool(event string, f RawFields, name string) (bool, error) {
	v, ok := f[name]
	if !ok {
		return false, &MissingFieldError{Event: event, Field: name}
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case uint64:
		return b != 0, nil
	case int64:
		return b != 0, nil
	default:
		return false, &WrongTypeError{Event: event, Field: name, Want: "bool", Got: v}
	}
}

func getGID(event string, f RawFields, name string) ([rawevents.GIDSize]byte, error) {
	var out [rawevents.GIDSize]byte
	v, ok := f[name]
	if !ok {
		return out, &MissingFieldError{Event: event, Field: name}
	}
	b, ok := v.([rawevents.GIDSize]byte)
	if !ok {
		return out, &WrongTypeError{Event: event, Field: name, Want: "gid", Got: v}
	}
	return b, nil
}
