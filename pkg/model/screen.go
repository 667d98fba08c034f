package model

// Screen is owned by the theatre management side; the booking core only reads
// its layout grid and tier configuration for pricing.
type Screen struct {
	ID        string       `json:"id" bson:"_id"`
	TheatreID string       `json:"theatre_id" bson:"theatre_id"`
	Name      string       `json:"name" bson:"name"`
	Layout    [][]string   `json:"layout" bson:"layout"`
	SeatTiers []TierConfig `json:"seat_tiers" bson:"seat_tiers"`
}

type TierConfig struct {
	Name  string   `json:"name" bson:"name"`
	Price float64  `json:"price" bson:"price"`
	Rows  []string `json:"rows" bson:"rows"`
}
