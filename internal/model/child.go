package model

import "time"

// Child is a family member who earns coins. CoinRate is display metadata
// only; earnings are always priced from the reward task table.
type Child struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	AvatarEmoji string    `json:"avatar_emoji"`
	CoinRate    int       `json:"coin_rate"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
