package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeatsPubSub broadcasts seat map changes so live seat pickers can refresh.
type SeatsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewSeatsPubSub(rdb *redis.Client) *SeatsPubSub {
	return &SeatsPubSub{
		rdb:     rdb,
		channel: ChannelSeatsChanged(),
	}
}

type SeatsChanged struct {
	Type   string   `json:"type"`
	ShowID string   `json:"show_id"`
	Seats  []string `json:"seats"`
	State  string   `json:"state"`
	TsUnix int64    `json:"ts_unix"`
}

func (p *SeatsPubSub) PublishSeatsChanged(ctx context.Context, showID string, seats []string, state string) error {
	b, err := json.Marshal(SeatsChanged{
		Type:   "seats_changed",
		ShowID: showID,
		Seats:  seats,
		State:  state,
		TsUnix: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}
