package models

import "fmt"

// EventKind различает два вида событий, к которым привязываются приглашения
// и объявления о поиске партнёра.
type EventKind string

const (
	EventTournament EventKind = "tournament"
	EventLeague     EventKind = "league"
)

// EventRef - ссылка на событие: турнир XOR лига, плюс опциональный дивизион.
// Замена паре nullable-колонок tournament_id/league_id на уровне типов:
// "оба заданы" / "ничего не задано" здесь непредставимы.
type EventRef struct {
	Kind       EventKind `json:"kind"`
	ID         int       `json:"id"`
	DivisionID *int      `json:"division_id,omitempty"`
}

func TournamentRef(id int) EventRef {
	return EventRef{Kind: EventTournament, ID: id}
}

func LeagueRef(id int) EventRef {
	return EventRef{Kind: EventLeague, ID: id}
}

func (e EventRef) Valid() bool {
	return (e.Kind == EventTournament || e.Kind == EventLeague) && e.ID > 0
}

// Same сравнивает событие без учёта дивизиона.
func (e EventRef) Same(other EventRef) bool {
	return e.Kind == other.Kind && e.ID == other.ID
}

func (e EventRef) String() string {
	return fmt.Sprintf("%s/%d", e.Kind, e.ID)
}

// InviteeKind различает адресацию приглашения: по id пользователя или по email.
type InviteeKind string

const (
	InviteeByUser  InviteeKind = "user"
	InviteeByEmail InviteeKind = "email"
)

// InviteeRef - адресат приглашения. Ровно одно из полей UserID/Email значимо,
// в зависимости от Kind.
type InviteeRef struct {
	Kind   InviteeKind `json:"kind"`
	UserID int         `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
}

func InviteeUser(id int) InviteeRef {
	return InviteeRef{Kind: InviteeByUser, UserID: id}
}

func InviteeEmail(email string) InviteeRef {
	return InviteeRef{Kind: InviteeByEmail, Email: email}
}

func (i InviteeRef) Valid() bool {
	switch i.Kind {
	case InviteeByUser:
		return i.UserID > 0
	case InviteeByEmail:
		return i.Email != ""
	}
	return false
}
