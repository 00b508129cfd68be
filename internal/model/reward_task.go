package model

import "time"

// DefaultRate is the coin value used for any task id missing from the rate table.
const DefaultRate = 10

type RewardTask struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Rate      int       `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
}
