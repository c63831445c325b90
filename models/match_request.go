package models

import "time"

// GameFormat соответствует ENUM game_format в БД.
type GameFormat string

const (
	FormatSingles      GameFormat = "singles"
	FormatDoubles      GameFormat = "doubles"
	FormatMixedDoubles GameFormat = "mixed_doubles"
)

func (f GameFormat) Valid() bool {
	switch f {
	case FormatSingles, FormatDoubles, FormatMixedDoubles:
		return true
	}
	return false
}

type MatchRequestStatus string

const (
	MatchRequestPending   MatchRequestStatus = "pending"
	MatchRequestMatched   MatchRequestStatus = "matched"
	MatchRequestCancelled MatchRequestStatus = "cancelled"
	MatchRequestExpired   MatchRequestStatus = "expired"
)

// MatchRequest - открытая заявка "ищу игру". Терминальные статусы
// (matched/cancelled/expired) никогда не откатываются; строки не удаляются,
// остаются для аудита.
type MatchRequest struct {
	ID            int                `json:"id"`
	RequesterID   int                `json:"requester_id"`
	Format        GameFormat         `json:"format"`
	SkillMin      *SkillLevel        `json:"skill_min,omitempty"`
	SkillMax      *SkillLevel        `json:"skill_max,omitempty"`
	Location      *GeoPoint          `json:"location,omitempty"`
	MaxDistanceKm *float64           `json:"max_distance_km,omitempty"`
	Status        MatchRequestStatus `json:"status"`
	MatchedGameID *int               `json:"matched_game_id,omitempty"`
	ExpiresAt     time.Time          `json:"expires_at"`
	CreatedAt     time.Time          `json:"created_at"`
}

func (r *MatchRequest) ExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
