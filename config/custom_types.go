/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"fmt"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v3"
)

// BytesCount is a number of bytes that may be written in a human-readable form ("10M", "1G") in config files.
type BytesCount uint64

// UnmarshalText parses a human-readable size.
func (b *BytesCount) UnmarshalText(text []byte) error {
	n, err := bytefmt.ToBytes(string(text))
	if err != nil {
		return fmt.Errorf("parse bytes count %q: %w", text, err)
	}
	*b = BytesCount(n)
	return nil
}

// UnmarshalJSON accepts both a number and a human-readable string.
func (b *BytesCount) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = BytesCount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("bytes count should be a number or a string: %w", err)
	}
	return b.UnmarshalText([]byte(s))
}

// UnmarshalYAML accepts both a number and a human-readable string.
func (b *BytesCount) UnmarshalYAML(value *yaml.Node) error {
	var n uint64
	if err := value.Decode(&n); err == nil {
		*b = BytesCount(n)
		return nil
	}
	return b.UnmarshalText([]byte(value.Value))
}

// MarshalText returns the human-readable form.
func (b BytesCount) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String returns the human-readable form.
func (b BytesCount) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// TimeDuration is a time.Duration that may be written as "1m30s" in config files.
type TimeDuration time.Duration

// UnmarshalText parses a duration string.
func (d *TimeDuration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = TimeDuration(dur)
	return nil
}

// UnmarshalJSON accepts both a number of nanoseconds and a duration string.
func (d *TimeDuration) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = TimeDuration(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration should be a number or a string: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalYAML accepts both a number of nanoseconds and a duration string.
func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = TimeDuration(n)
		return nil
	}
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalText returns the duration string.
func (d TimeDuration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// String returns the duration string.
func (d TimeDuration) String() string {
	return time.Duration(d).String()
}
