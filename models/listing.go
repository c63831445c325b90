package models

import "time"

type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingMatched ListingStatus = "matched"
	ListingExpired ListingStatus = "expired"
)

// PartnerListing - объявление "ищу партнёра на событие X".
// Активных объявлений на пару (user, event) может быть не больше одного,
// это закреплено частичным уникальным индексом.
type PartnerListing struct {
	ID        int           `json:"id"`
	UserID    int           `json:"user_id"`
	Event     EventRef      `json:"event"`
	SkillMin  *SkillLevel   `json:"skill_min,omitempty"`
	SkillMax  *SkillLevel   `json:"skill_max,omitempty"`
	Message   *string       `json:"message,omitempty"`
	Status    ListingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`

	// Опционально подгружаемый владелец (не мапится напрямую).
	User *User `json:"user,omitempty"`
}
