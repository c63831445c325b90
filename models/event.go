package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentSoon         TournamentStatus = "soon"
	TournamentRegistration TournamentStatus = "registration"
	TournamentActive       TournamentStatus = "active"
	TournamentCompleted    TournamentStatus = "completed"
	TournamentCanceled     TournamentStatus = "canceled"
)

type Tournament struct {
	ID                  int              `json:"id"`
	Name                string           `json:"name"`
	Format              GameFormat       `json:"format"`
	Status              TournamentStatus `json:"status"`
	MaxParticipants     int              `json:"max_participants"`
	CurrentParticipants int              `json:"current_participants"`
	CreatedAt           time.Time        `json:"created_at"`
}

type League struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Format    GameFormat `json:"format"`
	CreatedAt time.Time  `json:"created_at"`
}

// LeagueSeason - текущий сезон лиги; регистрация участника всегда
// привязывается к сезону, а не к лиге напрямую.
type LeagueSeason struct {
	ID        int       `json:"id"`
	LeagueID  int       `json:"league_id"`
	Name      string    `json:"name"`
	IsCurrent bool      `json:"is_current"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}
