package model

import "testing"

func TestParseSeatState(t *testing.T) {
	tests := []struct {
		name    string
		marker  string
		present bool
		want    SeatState
	}{
		{"absent key", "", false, Free{}},
		{"empty marker", "", true, Free{}},
		{"locked", "LOCKED:b1", true, Locked{BookingID: "b1"}},
		{"occupied", "user-42", true, Occupied{UserID: "user-42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSeatState(tt.marker, tt.present)
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestSeatState_MarkerRoundTrip(t *testing.T) {
	states := []SeatState{Locked{BookingID: "abc"}, Occupied{UserID: "u1"}}
	for _, s := range states {
		if got := ParseSeatState(s.Marker(), true); got != s {
			t.Errorf("round trip of %#v produced %#v", s, got)
		}
	}
	if (Free{}).Marker() != "" {
		t.Error("free seats must not carry a marker")
	}
}

func TestShow_SeatStateScansAllTiers(t *testing.T) {
	show := &Show{
		SeatTiers: []SeatTier{
			{Name: "Standard", Rows: []string{"A"}, OccupiedSeats: map[string]string{}},
			{Name: "Premium", Rows: []string{"B"}, OccupiedSeats: map[string]string{"A1": "LOCKED:x"}},
		},
	}

	state, idx := show.SeatState("A1")
	if !IsLockedBy(state, "x") {
		t.Fatalf("expected seat locked by x, got %#v", state)
	}
	if idx != 1 {
		t.Errorf("expected tier index 1, got %d", idx)
	}

	state, idx = show.SeatState("A2")
	if !IsFree(state) || idx != -1 {
		t.Errorf("expected free seat, got %#v at %d", state, idx)
	}
}
