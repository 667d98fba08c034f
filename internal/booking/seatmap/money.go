package seatmap

import (
	"fmt"
	"math"

	"cinebook/pkg/model"
)

// ToMinorUnits converts a major-unit amount (rupees) into minor units (paise)
// rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Chargeable reports whether price is worth at least one minor unit.
func Chargeable(price float64) bool {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	return ToMinorUnits(price) >= 1
}

func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// Total sums seat prices in minor units and converts back, so the stored total
// always equals the sum of the line items charged.
func Total(seats []model.BookedSeat) (float64, int64, error) {
	var minor int64
	for _, s := range seats {
		if !Chargeable(s.Price) {
			return 0, 0, fmt.Errorf("seat %s has invalid price %v", s.SeatID, s.Price)
		}
		minor += ToMinorUnits(s.Price)
	}
	if minor <= 0 {
		return 0, 0, fmt.Errorf("total must be positive, got %d", minor)
	}
	return FromMinorUnits(minor), minor, nil
}
