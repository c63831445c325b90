package models

import "time"

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
	InviteExpired  InviteStatus = "expired"
)

// TeamInvite - адресное приглашение в команду для конкретного события.
// Code - единственный внешний идентификатор приглашения, в JSON не попадает,
// хендлеры возвращают его отдельным полем.
type TeamInvite struct {
	ID        int        `json:"id"`
	Event     EventRef   `json:"event"`
	InviterID int        `json:"inviter_id"`
	Invitee   InviteeRef `json:"invitee"`
	// InviteeUserID проставляется при терминальном переходе (accept/decline),
	// когда адресат по email разрешился в конкретного пользователя.
	InviteeUserID *int         `json:"invitee_user_id,omitempty"`
	Code          string       `json:"-"`
	TeamName      *string      `json:"team_name,omitempty"`
	Message       *string      `json:"message,omitempty"`
	Status        InviteStatus `json:"status"`
	ExpiresAt     time.Time    `json:"expires_at"`
	CreatedAt     time.Time    `json:"created_at"`
}

// EffectiveStatus - ленивое представление статуса: pending с истёкшим сроком
// читается как expired без записи в БД. Авторитетный переход делает свипер
// или ближайшая пишущая операция.
func (i *TeamInvite) EffectiveStatus(now time.Time) InviteStatus {
	if i.Status == InvitePending && now.After(i.ExpiresAt) {
		return InviteExpired
	}
	return i.Status
}
