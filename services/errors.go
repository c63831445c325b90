package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурсы не найдены
	ErrInviteNotFound       = errors.New("invite not found")
	ErrMatchRequestNotFound = errors.New("match request not found")
	ErrListingNotFound      = errors.New("partner listing not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrLeagueNotFound       = errors.New("league not found")

	// Истечение срока - отдельно от прочих невалидных состояний, чтобы
	// клиент мог показать "приглашение истекло", а не "уже использовано".
	ErrInviteExpired       = errors.New("invite has expired")
	ErrMatchRequestExpired = errors.New("match request has expired")

	// Операция невалидна для текущего статуса. Сервисы оборачивают эти
	// ошибки, называя фактический статус.
	ErrInviteNotPending       = errors.New("invite is not pending")
	ErrMatchRequestNotPending = errors.New("match request is not pending")
	ErrSelfAccept             = errors.New("inviter cannot accept their own invite")
	ErrSelfDecline            = errors.New("inviter cannot decline their own invite, cancel it instead")
	ErrSelfMatch              = errors.New("cannot match a request with itself or its own requester")
	ErrSelfInvite             = errors.New("cannot invite yourself")
	ErrNoCurrentSeason        = errors.New("league has no current season")
	ErrRegistrationNotOpen    = errors.New("tournament registration is not open")
	ErrFormatMismatch         = errors.New("match requests have different game formats")

	// Ошибки доступа: несовпадение личности
	ErrInviteeMismatch = errors.New("invite is addressed to a different user")
	ErrNotInviteOwner  = errors.New("only the inviter can perform this action")
	ErrNotRequestOwner = errors.New("only the requester can perform this action")
	ErrNotListingOwner = errors.New("only the listing owner can perform this action")

	// Конфликты
	ErrDuplicatePendingInvite = errors.New("a pending invite for this invitee and event already exists")
	ErrDuplicateActiveListing = errors.New("an active listing for this event already exists")
	ErrTournamentFull         = errors.New("tournament registration is full")

	// Валидация входа
	ErrValidationFailed = errors.New("validation failed")

	// Генерация кода приглашения
	ErrInviteTokenGeneration = errors.New("failed to generate unique invite code")
)
