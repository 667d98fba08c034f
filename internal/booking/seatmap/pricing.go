package seatmap

import (
	"errors"
	"fmt"
	"strings"

	bookingErrors "cinebook/internal/booking/errors"
	"cinebook/pkg/model"
)

type layoutTier struct {
	Name  string
	Price float64
}

// layoutCodes maps the single letter category stored in a screen layout grid
// to a canonical tier and its base price.
var layoutCodes = map[string]layoutTier{
	"S": {Name: "Standard", Price: 150},
	"D": {Name: "Deluxe", Price: 200},
	"P": {Name: "Premium", Price: 250},
	"R": {Name: "Recliner", Price: 350},
	"C": {Name: "Couple", Price: 500},
}

type TierQuote struct {
	SeatID string
	Tier   string
	Price  float64
}

// PricingError lists every requested seat that could not be priced.
type PricingError struct {
	Seats []string
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("no pricing tier for seats %s", strings.Join(e.Seats, ", "))
}

// ResolveTier prices a single seat. Precedence:
//  1. a show tier listing the seat's row;
//  2. a screen tier listing the row, priced by the show tier of the same name
//     when one exists;
//  3. the category code in the screen layout at the seat's position, priced by
//     a same-named show tier, else screen tier, else the code's base price.
//
// screen may be nil.
func ResolveTier(show *model.Show, screen *model.Screen, seatID string) (TierQuote, error) {
	row, col, err := ParseSeatID(seatID)
	if err != nil {
		return TierQuote{}, err
	}

	for _, tier := range show.SeatTiers {
		if !tier.HasRow(row) {
			continue
		}
		if tier.SeatsPerRow > 0 && col > tier.SeatsPerRow {
			return TierQuote{}, fmt.Errorf("%w: %s beyond %d seats in row %s", bookingErrors.ErrInvalidSeat, seatID, tier.SeatsPerRow, row)
		}
		return quote(seatID, tier.Name, tier.Price)
	}

	if screen == nil {
		return TierQuote{}, fmt.Errorf("%w: %s", bookingErrors.ErrNoTier, seatID)
	}

	for _, tc := range screen.SeatTiers {
		if !contains(tc.Rows, row) {
			continue
		}
		price := tc.Price
		if i := show.TierIndex(tc.Name); i >= 0 {
			price = show.SeatTiers[i].Price
		}
		return quote(seatID, tc.Name, price)
	}

	code, ok := layoutCode(screen.Layout, RowIndex(row), col-1)
	if !ok {
		return TierQuote{}, fmt.Errorf("%w: %s", bookingErrors.ErrNoTier, seatID)
	}
	base, ok := layoutCodes[code]
	if !ok {
		return TierQuote{}, fmt.Errorf("%w: %s has unknown layout code %q", bookingErrors.ErrNoTier, seatID, code)
	}
	price := base.Price
	if i := show.TierIndex(base.Name); i >= 0 {
		price = show.SeatTiers[i].Price
	} else if tc, ok := screenTier(screen, base.Name); ok {
		price = tc.Price
	}
	return quote(seatID, base.Name, price)
}

// PriceSeats resolves every seat or none. The returned slice preserves the
// order of seats.
func PriceSeats(show *model.Show, screen *model.Screen, seats []string) ([]model.BookedSeat, error) {
	priced := make([]model.BookedSeat, 0, len(seats))
	var invalid []string
	for _, seatID := range seats {
		q, err := ResolveTier(show, screen, seatID)
		if err != nil {
			invalid = append(invalid, seatID)
			continue
		}
		priced = append(priced, model.BookedSeat{SeatID: q.SeatID, Tier: q.Tier, Price: q.Price})
	}
	if len(invalid) > 0 {
		return nil, &PricingError{Seats: invalid}
	}
	return priced, nil
}

// LockTier picks the tier whose occupied map will hold the seat's marker: the
// show tier named like the resolved tier, else the show tier listing the row,
// else the first tier.
func LockTier(show *model.Show, seat model.BookedSeat) (int, error) {
	if len(show.SeatTiers) == 0 {
		return -1, fmt.Errorf("%w: show %s has no seat tiers", bookingErrors.ErrNoTier, show.ID)
	}
	if i := show.TierIndex(seat.Tier); i >= 0 {
		return i, nil
	}
	if row, _, err := ParseSeatID(seat.SeatID); err == nil {
		for i, tier := range show.SeatTiers {
			if tier.HasRow(row) {
				return i, nil
			}
		}
	}
	return 0, nil
}

// IsPricingError reports whether err came from PriceSeats.
func IsPricingError(err error) (*PricingError, bool) {
	var pe *PricingError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func quote(seatID, tier string, price float64) (TierQuote, error) {
	if !Chargeable(price) {
		return TierQuote{}, fmt.Errorf("%w: tier %s has invalid price %v", bookingErrors.ErrNoTier, tier, price)
	}
	return TierQuote{SeatID: seatID, Tier: tier, Price: price}, nil
}

func layoutCode(layout [][]string, row, col int) (string, bool) {
	if row < 0 || row >= len(layout) {
		return "", false
	}
	if col < 0 || col >= len(layout[row]) {
		return "", false
	}
	code := strings.ToUpper(strings.TrimSpace(layout[row][col]))
	return code, code != ""
}

func screenTier(screen *model.Screen, name string) (model.TierConfig, bool) {
	for _, tc := range screen.SeatTiers {
		if tc.Name == name {
			return tc, true
		}
	}
	return model.TierConfig{}, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
