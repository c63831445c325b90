package models

import "time"

type NotificationType string

const (
	NotificationMatchFound         NotificationType = "match_found"
	NotificationMatchRequestLapsed NotificationType = "match_request_expired"
	NotificationInviteReceived     NotificationType = "invite_received"
	NotificationInviteAccepted     NotificationType = "invite_accepted"
	NotificationInviteDeclined     NotificationType = "invite_declined"
	NotificationInviteLapsed       NotificationType = "invite_expired"
	NotificationListingContact     NotificationType = "listing_contact"
)

type Notification struct {
	ID      int              `json:"id"`
	UserID  int              `json:"user_id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	// ActionRef - ссылка на сущность, к которой ведёт уведомление
	// (код приглашения, id игры и т.п.).
	ActionRef *string    `json:"action_ref,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
