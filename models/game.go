package models

import "time"

// GameSession создаётся при взаимном коммите двух заявок на игру.
// PublicCode используется во внешних ссылках и realtime-пейлоадах.
type GameSession struct {
	ID         int        `json:"id"`
	PublicCode string     `json:"public_code"`
	Format     GameFormat `json:"format"`
	CreatedBy  int        `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`

	Team1 []int `json:"team1,omitempty"`
	Team2 []int `json:"team2,omitempty"`
}
