package seatmap

import "cinebook/pkg/model"

type Availability struct {
	Available   bool     `json:"available"`
	Conflicting []string `json:"conflicting"`
}

// CheckAvailability reports which of seats carry a marker in any tier of the
// show. It only reads; the conditional lock write is what actually decides.
func CheckAvailability(show *model.Show, seats []string) Availability {
	result := Availability{Available: true, Conflicting: []string{}}
	for _, seatID := range seats {
		if state, _ := show.SeatState(seatID); !model.IsFree(state) {
			result.Available = false
			result.Conflicting = append(result.Conflicting, seatID)
		}
	}
	return result
}
