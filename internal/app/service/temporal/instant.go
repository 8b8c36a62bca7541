// Package temporal resolves event windows and storage retention across time zones.
package temporal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// EpochSeconds is the {seconds, nanoseconds} timestamp shape some clients send.
type EpochSeconds struct {
	Seconds     int64 `json:"_seconds"`
	Nanoseconds int64 `json:"_nanoseconds"`
}

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// NormalizeInstant converts every accepted date representation to a UTC time.
func NormalizeInstant(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, fmt.Errorf("zero time")
		}
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return NormalizeInstant(*v)
	case string:
		return parseString(v)
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, fmt.Errorf("invalid epoch %v", v)
		}
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return time.Unix(i, 0).UTC(), nil
		}
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch %q", v.String())
		}
		return NormalizeInstant(f)
	case EpochSeconds:
		return time.Unix(v.Seconds, v.Nanoseconds).UTC(), nil
	case *EpochSeconds:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil timestamp")
		}
		return NormalizeInstant(*v)
	case map[string]any:
		return fromMap(v)
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	}
	return time.Time{}, fmt.Errorf("unsupported date type %T", raw)
}

func parseString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func fromMap(m map[string]any) (time.Time, error) {
	secRaw, ok := m["_seconds"]
	if !ok {
		secRaw, ok = m["seconds"]
	}
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp object without seconds")
	}
	nanoRaw, ok := m["_nanoseconds"]
	if !ok {
		nanoRaw = m["nanoseconds"]
	}
	sec, err := toInt64(secRaw)
	if err != nil {
		return time.Time{}, fmt.Errorf("seconds: %w", err)
	}
	var nanos int64
	if nanoRaw != nil {
		if nanos, err = toInt64(nanoRaw); err != nil {
			return time.Time{}, fmt.Errorf("nanoseconds: %w", err)
		}
	}
	return time.Unix(sec, nanos).UTC(), nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

// Instant is a JSON date that accepts every NormalizeInstant input form.
type Instant struct {
	time.Time
}

func (i *Instant) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		i.Time = time.Time{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	t, err := NormalizeInstant(raw)
	if err != nil {
		return err
	}
	i.Time = t
	return nil
}

func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(i.UTC().Format(time.RFC3339Nano))
}
