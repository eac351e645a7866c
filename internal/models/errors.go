package models

import (
	"fmt"
	"time"
)

// NetworkError is a transport or HTTP failure after retries were exhausted.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("network error fetching %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError means the adaptive deadline fired on every attempt.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s fetching %s", e.Timeout, e.URL)
}

// DecodeError means the API returned a body that is not the expected JSON
// shape. Decode failures are not retried: the response arrived.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StorageError is a key-value store failure. Always non-fatal: the
// persistence path swallows it after logging.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
