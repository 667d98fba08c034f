package seatmap

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	bookingErrors "cinebook/internal/booking/errors"
)

var seatIDPattern = regexp.MustCompile(`^([A-Z]{1,2})([0-9]{1,3})$`)

// ParseSeatID splits an already normalized seat identifier such as "AB12"
// into its row label and 1-based column.
func ParseSeatID(seatID string) (string, int, error) {
	m := seatIDPattern.FindStringSubmatch(seatID)
	if m == nil {
		return "", 0, fmt.Errorf("%w: %q", bookingErrors.ErrInvalidSeat, seatID)
	}
	col, err := strconv.Atoi(m[2])
	if err != nil || col < 1 {
		return "", 0, fmt.Errorf("%w: %q", bookingErrors.ErrInvalidSeat, seatID)
	}
	return m[1], col, nil
}

// RowIndex maps a row label to its zero-based position in the screen layout:
// A=0 .. Z=25, AA=26, AB=27 and so on.
func RowIndex(row string) int {
	idx := 0
	for _, r := range row {
		idx = idx*26 + int(r-'A') + 1
	}
	return idx - 1
}

// CanonicalSeatID upper-cases and trims raw and drops leading zeros from the
// column, so "a01" and "A1" name the same seat key.
func CanonicalSeatID(raw string) (string, error) {
	row, col, err := ParseSeatID(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", err
	}
	return row + strconv.Itoa(col), nil
}

// NormalizeSeatIDs canonicalizes and de-duplicates the requested seats,
// keeping first-seen order. Identifiers that cannot be parsed are returned
// separately.
func NormalizeSeatIDs(raw []string) (seats []string, invalid []string) {
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		id, err := CanonicalSeatID(r)
		if err != nil {
			invalid = append(invalid, r)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		seats = append(seats, id)
	}
	return seats, invalid
}

// Sorted returns a copy of seats in lock order. Every booking attempt locks in
// the same order so two overlapping attempts meet on the same first seat.
func Sorted(seats []string) []string {
	out := make([]string, len(seats))
	copy(out, seats)
	sort.Slice(out, func(i, j int) bool {
		ri, ci, _ := ParseSeatID(out[i])
		rj, cj, _ := ParseSeatID(out[j])
		if RowIndex(ri) != RowIndex(rj) {
			return RowIndex(ri) < RowIndex(rj)
		}
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}
