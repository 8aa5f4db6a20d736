package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DeadlineLayout is the only accepted textual form of a deadline.
const DeadlineLayout = "2006-01-02 15:04"

var ErrDeadlineFormat = errors.New("deadline must use the format YYYY-MM-DD HH:MM")

// Deadline is a minute-precision wall clock time without a zone.
type Deadline struct {
	time.Time
}

// ParseDeadline accepts s only if formatting the parsed value gives s back.
func ParseDeadline(s string) (Deadline, error) {
	t, err := time.Parse(DeadlineLayout, s)
	if err != nil {
		return Deadline{}, ErrDeadlineFormat
	}
	if t.Format(DeadlineLayout) != s {
		return Deadline{}, ErrDeadlineFormat
	}
	return Deadline{t}, nil
}

// NewDeadline drops sub-minute precision and zone information from t.
func NewDeadline(t time.Time) Deadline {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	return Deadline{wall}
}

func (d Deadline) String() string {
	return d.Format(DeadlineLayout)
}

func (d Deadline) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Deadline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("deadline: %w", err)
	}
	parsed, err := ParseDeadline(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
