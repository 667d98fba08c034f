package model

import "time"

type Show struct {
	ID            string     `json:"id" bson:"_id"`
	MovieID       string     `json:"movie_id" bson:"movie_id"`
	TheatreID     string     `json:"theatre_id" bson:"theatre_id"`
	ScreenID      string     `json:"screen_id" bson:"screen_id"`
	StartTime     time.Time  `json:"start_time" bson:"start_time"`
	IsActive      bool       `json:"is_active" bson:"is_active"`
	TotalSeats    int        `json:"total_seats" bson:"total_seats"`
	OccupiedCount int        `json:"occupied_count" bson:"occupied_count"`
	SeatTiers     []SeatTier `json:"seat_tiers" bson:"seat_tiers"`
}

// SeatTier is a priced block of rows. OccupiedSeats maps a seat id such as
// "A7" to its stored marker; an absent key means the seat is free.
type SeatTier struct {
	Name          string            `json:"name" bson:"name"`
	Price         float64           `json:"price" bson:"price"`
	Rows          []string          `json:"rows" bson:"rows"`
	SeatsPerRow   int               `json:"seats_per_row" bson:"seats_per_row"`
	OccupiedSeats map[string]string `json:"occupied_seats" bson:"occupied_seats"`
}

// SeatState returns the state of seatID within this tier only.
func (t SeatTier) SeatState(seatID string) SeatState {
	marker, ok := t.OccupiedSeats[seatID]
	return ParseSeatState(marker, ok)
}

// HasRow reports whether the tier is configured for the given row label.
func (t SeatTier) HasRow(row string) bool {
	for _, r := range t.Rows {
		if r == row {
			return true
		}
	}
	return false
}

// SeatState scans every tier and returns the first non-free state found for
// seatID, together with the index of the tier holding it (-1 when free).
func (s *Show) SeatState(seatID string) (SeatState, int) {
	for i, tier := range s.SeatTiers {
		state := tier.SeatState(seatID)
		if !IsFree(state) {
			return state, i
		}
	}
	return Free{}, -1
}

// TierIndex returns the index of the tier named name, or -1.
func (s *Show) TierIndex(name string) int {
	for i, tier := range s.SeatTiers {
		if tier.Name == name {
			return i
		}
	}
	return -1
}
