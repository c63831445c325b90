package models

import "time"

// DefaultSeedRating - рейтинг-заглушка для снапшота, когда у игрока нет
// рейтинга по нужному формату. Продуктовая константа, не выводится.
const DefaultSeedRating = 3.00

// TeamRegistration - результат успешного принятия приглашения на турнир:
// команда с ровно двумя строками игроков.
type TeamRegistration struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	DivisionID   *int      `json:"division_id,omitempty"`
	TeamName     string    `json:"team_name"`
	CreatedAt    time.Time `json:"created_at"`

	Players []RegistrationPlayer `json:"players,omitempty"`
}

// RegistrationPlayer - членство игрока в командной регистрации.
// RatingSnapshot фиксируется в момент регистрации и далее не меняется,
// используется для посева.
type RegistrationPlayer struct {
	ID             int     `json:"id"`
	RegistrationID int     `json:"registration_id"`
	UserID         int     `json:"user_id"`
	RatingSnapshot float64 `json:"rating_snapshot"`
	IsCaptain      bool    `json:"is_captain"`
}

// LeagueParticipant - командное участие в сезоне лиги. Вместимость лиги
// считается по числу строк участников, счётчика здесь нет.
type LeagueParticipant struct {
	ID        int       `json:"id"`
	LeagueID  int       `json:"league_id"`
	SeasonID  int       `json:"season_id"`
	TeamName  string    `json:"team_name"`
	CreatedAt time.Time `json:"created_at"`

	Members []ParticipantMember `json:"members,omitempty"`
}

type ParticipantMember struct {
	ID             int     `json:"id"`
	ParticipantID  int     `json:"participant_id"`
	UserID         int     `json:"user_id"`
	RatingSnapshot float64 `json:"rating_snapshot"`
	IsCaptain      bool    `json:"is_captain"`
}
