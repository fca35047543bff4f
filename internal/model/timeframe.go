package model

import (
	"fmt"
	"strconv"
	"time"
)

// Timeframe is an exchange kline interval such as "1m", "4h", "1d", "1w" or "1M".
type Timeframe string

// ParseTimeframe validates an interval string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, _, err := tf.split(); err != nil {
		return "", err
	}
	return tf, nil
}

func (tf Timeframe) split() (int, byte, error) {
	s := string(tf)
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("invalid timeframe %q", s)
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, 0, fmt.Errorf("invalid timeframe %q", s)
	}
	switch unit {
	case 'm', 'h', 'd', 'w', 'M':
	default:
		return 0, 0, fmt.Errorf("invalid timeframe unit in %q", s)
	}
	return n, unit, nil
}

// Count returns the numeric part of the interval.
func (tf Timeframe) Count() int {
	n, _, _ := tf.split()
	return n
}

// Unit returns the interval unit: 'm', 'h', 'd', 'w' or 'M'.
func (tf Timeframe) Unit() byte {
	_, u, _ := tf.split()
	return u
}

// Duration returns the nominal bar length. Months are treated as 30 days.
func (tf Timeframe) Duration() time.Duration {
	n, unit, err := tf.split()
	if err != nil {
		return 0
	}
	d := time.Duration(n)
	switch unit {
	case 'm':
		return d * time.Minute
	case 'h':
		return d * time.Hour
	case 'd':
		return d * 24 * time.Hour
	case 'w':
		return d * 7 * 24 * time.Hour
	default:
		return d * 30 * 24 * time.Hour
	}
}

func (tf Timeframe) String() string { return string(tf) }
