// Package idgen implements the day-scoped delivery slip number sequence.
// Slip numbers look like "20250601-003": a YYYYMMDD prefix and a zero-padded
// three digit sequence that restarts every calendar day.
package idgen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrIDSpaceExhausted is returned once the daily sequence would pass 999.
var ErrIDSpaceExhausted = errors.New("daily id sequence exhausted")

const suffixMax = 999

// Prefix formats the day prefix for t using the server clock's zone.
func Prefix(t time.Time) string {
	return t.Format("20060102")
}

// Next computes the id following last within the given day prefix. An empty
// last starts the day at 001. The caller is responsible for serializing the
// read of last with the insert of the returned id.
func Next(prefix, last string) (string, error) {
	next := 1
	if last != "" {
		suffix, ok := strings.CutPrefix(last, prefix+"-")
		if !ok {
			return "", fmt.Errorf("id %q does not belong to day %s", last, prefix)
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			return "", fmt.Errorf("malformed id suffix in %q: %w", last, err)
		}
		next = n + 1
	}
	if next > suffixMax {
		return "", ErrIDSpaceExhausted
	}
	return fmt.Sprintf("%s-%03d", prefix, next), nil
}

// Suffix extracts the numeric sequence part of a slip id.
func Suffix(id string) (int, error) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return 0, fmt.Errorf("malformed id %q", id)
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed id suffix in %q: %w", id, err)
	}
	return n, nil
}

// HasPrefix reports whether id belongs to the given day prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-")
}
