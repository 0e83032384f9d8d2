package helper

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrUnexpectedType is returned when a looked-up value has the wrong type.
var ErrUnexpectedType = errors.New("unexpected type")

// GetTypedValueOf safely asserts the result of a getter function to the expected type T.
// Returns an error if the getter fails or the type assertion fails.
func GetTypedValueOf[T any](getFn func() (any, error)) (T, error) {
	var zero T

	res, err := getFn()
	if err != nil {
		return zero, fmt.Errorf("failed to get value: %w", err)
	}

	val, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T, want %T", ErrUnexpectedType, res, zero)
	}

	return val, nil
}

// MustGetTypedValue is the panic-on-failure variant of GetTypedValueOf.
// Use when failure should be fatal (e.g., when effect handler is guaranteed to exist).
func MustGetTypedValue[T any](getFn func() (any, error)) T {
	res, err := GetTypedValueOf[T](getFn)
	if err != nil {
		panic(err)
	}
	return res
}

// AsInt converts loosely typed configuration values to int.
// Accepts integer kinds, whole floats and decimal strings.
func AsInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint32:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %v is not a whole number", ErrUnexpectedType, v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("%w: %T, want int", ErrUnexpectedType, raw)
	}
}

// AsFloat converts loosely typed configuration values to float64.
func AsFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("%w: %T, want float", ErrUnexpectedType, raw)
	}
}

// AsDuration converts loosely typed configuration values to time.Duration.
// Integers are read as milliseconds; strings use time.ParseDuration syntax.
func AsDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	case string:
		return time.ParseDuration(v)
	default:
		return 0, fmt.Errorf("%w: %T, want duration", ErrUnexpectedType, raw)
	}
}

// AsBool converts loosely typed configuration values to bool.
func AsBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("%w: %T, want bool", ErrUnexpectedType, raw)
	}
}
