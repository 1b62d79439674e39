package alpaca

import (
	"fmt"
	"time"
)

// Timeframe is the bar granularity accepted by the bars endpoint.
type Timeframe string

const (
	Timeframe1Min   Timeframe = "1Min"
	Timeframe5Min   Timeframe = "5Min"
	Timeframe15Min  Timeframe = "15Min"
	Timeframe30Min  Timeframe = "30Min"
	Timeframe1Hour  Timeframe = "1Hour"
	Timeframe1Day   Timeframe = "1Day"
	Timeframe1Week  Timeframe = "1Week"
	Timeframe1Month Timeframe = "1Month"
)

// validTimeframes maps each timeframe to the nominal length of one bar
var validTimeframes = map[Timeframe]time.Duration{
	Timeframe1Min:   time.Minute,
	Timeframe5Min:   5 * time.Minute,
	Timeframe15Min:  15 * time.Minute,
	Timeframe30Min:  30 * time.Minute,
	Timeframe1Hour:  time.Hour,
	Timeframe1Day:   24 * time.Hour,
	Timeframe1Week:  7 * 24 * time.Hour,
	Timeframe1Month: 30 * 24 * time.Hour, // nominal; calendar months vary
}

// IsValid checks if the Timeframe is one of the predefined values
func (t Timeframe) IsValid() bool {
	_, ok := validTimeframes[t]
	return ok
}

// Duration is the nominal bar length, zero for an invalid timeframe.
func (t Timeframe) Duration() time.Duration {
	return validTimeframes[t]
}

// ParseTimeframe parses a string such as "1Day" into a Timeframe
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.IsValid() {
		return "", fmt.Errorf("invalid timeframe: %s", s)
	}
	return tf, nil
}
