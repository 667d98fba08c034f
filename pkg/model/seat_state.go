package model

import "strings"

// LockedPrefix prefixes the stored marker of a seat held for a pending booking.
const LockedPrefix = "LOCKED:"

// SeatState is the decoded occupancy of a single seat. The concrete types are
// Free, Locked and Occupied; use a type switch to inspect it.
type SeatState interface {
	// Marker returns the string stored in a tier's occupied map. Free seats
	// have no stored marker and return "".
	Marker() string
	isSeatState()
}

type Free struct{}

type Locked struct {
	BookingID string
}

type Occupied struct {
	UserID string
}

func (Free) Marker() string       { return "" }
func (l Locked) Marker() string   { return LockedPrefix + l.BookingID }
func (o Occupied) Marker() string { return o.UserID }

func (Free) isSeatState()     {}
func (Locked) isSeatState()   {}
func (Occupied) isSeatState() {}

// ParseSeatState decodes a stored marker. A missing key and an empty marker
// both decode to Free.
func ParseSeatState(marker string, present bool) SeatState {
	if !present || marker == "" {
		return Free{}
	}
	if bookingID, ok := strings.CutPrefix(marker, LockedPrefix); ok {
		return Locked{BookingID: bookingID}
	}
	return Occupied{UserID: marker}
}

// IsFree reports whether s can be taken by a new lock.
func IsFree(s SeatState) bool {
	_, ok := s.(Free)
	return ok
}

// IsLockedBy reports whether s is held by the given booking.
func IsLockedBy(s SeatState, bookingID string) bool {
	l, ok := s.(Locked)
	return ok && l.BookingID == bookingID
}
