package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/sweep/internal/ir"
)

// marshalObject converts an ir.Object to canonical JSON TEXT for storage.
func marshalObject(obj ir.Object) (string, error) {
	if obj == nil {
		obj = ir.Object{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal object: %w", err)
	}
	return string(data), nil
}

// marshalValue converts any ir.Value to canonical JSON TEXT.
func marshalValue(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT to an ir.Object.
// Integers decode via json.Number, so values above 2^53 keep their precision.
func unmarshalObject(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := obj.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}

func unmarshalValue(data string) (ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func unmarshalArray(data string) (ir.Array, error) {
	if data == "" || data == "[]" {
		return ir.Array{}, nil
	}
	var arr ir.Array
	if err := arr.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal array: %w", err)
	}
	return arr, nil
}

// formatTime stores times as RFC 3339 in UTC; the zero time is NULL.
func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", ns.String, err)
	}
	return t, nil
}
