package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/repositories"
)

const (
	inviteCodeLength = 16                 // Длина кода в байтах (32 символа в hex)
	defaultInviteTTL = 7 * 24 * time.Hour // Срок действия приглашения (7 дней)
	codeGenAttempts  = 3                  // Попытки сгенерировать уникальный код
)

type CreateInviteInput struct {
	InviterID int
	Event     models.EventRef
	Invitee   models.InviteeRef
	TeamName  *string
	Message   *string
}

// InviteEmailSender шлёт письмо адресату приглашения по email. Best-effort.
type InviteEmailSender interface {
	SendInviteEmail(ctx context.Context, to, inviterName string, invite *models.TeamInvite) error
}

type InviteService interface {
	Create(ctx context.Context, input CreateInviteInput) (*models.TeamInvite, error)
	// Lookup - публичное чтение по коду с ленивым effective-статусом:
	// просроченный pending читается как expired без записи.
	Lookup(ctx context.Context, code string) (*models.TeamInvite, error)
	Decline(ctx context.Context, code string, decliningUserID int) error
	// Cancel жёстко удаляет pending-приглашение; доступно только инвайтеру.
	Cancel(ctx context.Context, code string, requestingUserID int) error
	ListSent(ctx context.Context, inviterID int) ([]*models.TeamInvite, error)
	ListReceived(ctx context.Context, userID int) ([]*models.TeamInvite, error)
}

type inviteService struct {
	inviteRepo     repositories.InviteRepository
	userRepo       repositories.UserRepository
	tournamentRepo repositories.TournamentRepository
	leagueRepo     repositories.LeagueRepository
	notifier       Notifier
	email          InviteEmailSender
	logger         *slog.Logger
	ttl            time.Duration
	now            func() time.Time
}

func NewInviteService(
	inviteRepo repositories.InviteRepository,
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	leagueRepo repositories.LeagueRepository,
	notifier Notifier,
	email InviteEmailSender,
	logger *slog.Logger,
	ttl time.Duration,
) InviteService {
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	return &inviteService{
		inviteRepo:     inviteRepo,
		userRepo:       userRepo,
		tournamentRepo: tournamentRepo,
		leagueRepo:     leagueRepo,
		notifier:       notifier,
		email:          email,
		logger:         logger,
		ttl:            ttl,
		now:            time.Now,
	}
}

func generateSecureCode(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *inviteService) Create(ctx context.Context, input CreateInviteInput) (*models.TeamInvite, error) {
	if !input.Event.Valid() {
		return nil, fmt.Errorf("%w: exactly one of tournament or league must be referenced", ErrValidationFailed)
	}
	if !input.Invitee.Valid() {
		return nil, fmt.Errorf("%w: invitee user or email must be set", ErrValidationFailed)
	}

	inviter, err := s.userRepo.GetByID(ctx, nil, input.InviterID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	switch input.Invitee.Kind {
	case models.InviteeByUser:
		if input.Invitee.UserID == input.InviterID {
			return nil, ErrSelfInvite
		}
		if _, err := s.userRepo.GetByID(ctx, nil, input.Invitee.UserID); err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	case models.InviteeByEmail:
		if strings.EqualFold(input.Invitee.Email, inviter.Email) {
			return nil, ErrSelfInvite
		}
	}

	if err := s.checkEventExists(ctx, input.Event); err != nil {
		return nil, err
	}

	// Предварительная проверка дубликата; частичный уникальный индекс в БД
	// остаётся последней линией обороны против гонки двух create.
	if _, err := s.inviteRepo.FindPending(ctx, input.InviterID, input.Event, input.Invitee); err == nil {
		return nil, ErrDuplicatePendingInvite
	} else if !errors.Is(err, repositories.ErrInviteNotFound) {
		return nil, err
	}

	invite := &models.TeamInvite{
		Event:     input.Event,
		InviterID: input.InviterID,
		Invitee:   input.Invitee,
		TeamName:  input.TeamName,
		Message:   input.Message,
		ExpiresAt: s.now().Add(s.ttl),
	}

	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		code, err := generateSecureCode(inviteCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInviteTokenGeneration, err)
		}
		invite.Code = code

		err = s.inviteRepo.Create(ctx, nil, invite)
		if err == nil {
			s.afterCreate(ctx, inviter, invite)
			return invite, nil
		}
		if errors.Is(err, repositories.ErrInvitePendingDuplicate) {
			return nil, ErrDuplicatePendingInvite
		}
		if !errors.Is(err, repositories.ErrInviteCodeConflict) {
			return nil, err
		}
		// Коллизия кода - крайне маловероятна; пробуем новый код.
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrInviteTokenGeneration, codeGenAttempts)
}

func (s *inviteService) checkEventExists(ctx context.Context, event models.EventRef) error {
	switch event.Kind {
	case models.EventTournament:
		if _, err := s.tournamentRepo.GetByID(ctx, nil, event.ID); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
	case models.EventLeague:
		if _, err := s.leagueRepo.GetByID(ctx, nil, event.ID); err != nil {
			if errors.Is(err, repositories.ErrLeagueNotFound) {
				return ErrLeagueNotFound
			}
			return err
		}
	}
	return nil
}

// afterCreate доставляет приглашение адресату: уведомление зарегистрированному
// пользователю, письмо - адресату по email. Сбой не отменяет создание.
func (s *inviteService) afterCreate(ctx context.Context, inviter *models.User, invite *models.TeamInvite) {
	switch invite.Invitee.Kind {
	case models.InviteeByUser:
		code := invite.Code
		s.notifier.Notify(ctx, invite.Invitee.UserID, models.NotificationInviteReceived,
			"Team invite",
			fmt.Sprintf("%s invited you to form a team.", inviter.DisplayName()),
			&code)
	case models.InviteeByEmail:
		if s.email == nil {
			return
		}
		if err := s.email.SendInviteEmail(ctx, invite.Invitee.Email, inviter.DisplayName(), invite); err != nil {
			s.logger.Warn("failed to send invite email",
				slog.Int("invite_id", invite.ID),
				slog.Any("error", err))
		}
	}
}

func (s *inviteService) Lookup(ctx context.Context, code string) (*models.TeamInvite, error) {
	invite, err := s.inviteRepo.GetByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	// Ленивое представление: строка не мутируется, авторитетный переход
	// сделает свипер или ближайшая пишущая операция.
	invite.Status = invite.EffectiveStatus(s.now())
	return invite, nil
}

func (s *inviteService) Decline(ctx context.Context, code string, decliningUserID int) error {
	invite, err := s.inviteRepo.GetByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return ErrInviteNotFound
		}
		return err
	}

	if invite.Status != models.InvitePending {
		return fmt.Errorf("%w: invite is %s", ErrInviteNotPending, invite.Status)
	}
	if decliningUserID == invite.InviterID {
		return ErrSelfDecline
	}

	user, err := s.userRepo.GetByID(ctx, nil, decliningUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := matchInvitee(invite, user); err != nil {
		return err
	}

	if invite.EffectiveStatus(s.now()) == models.InviteExpired {
		// Пишущая операция фиксирует ленивое истечение.
		if err := s.inviteRepo.MarkExpired(ctx, nil, invite.ID); err != nil &&
			!errors.Is(err, repositories.ErrInviteStatusConflict) {
			return err
		}
		return ErrInviteExpired
	}

	if err := s.inviteRepo.MarkDeclined(ctx, nil, invite.ID, decliningUserID); err != nil {
		if errors.Is(err, repositories.ErrInviteStatusConflict) {
			// Гонку выиграл другой переход; перечитаем ради точного статуса.
			current, readErr := s.inviteRepo.GetByCode(ctx, nil, code)
			if readErr == nil {
				return fmt.Errorf("%w: invite is %s", ErrInviteNotPending, current.Status)
			}
			return fmt.Errorf("%w: invite is no longer pending", ErrInviteNotPending)
		}
		return err
	}

	code = invite.Code
	s.notifier.Notify(ctx, invite.InviterID, models.NotificationInviteDeclined,
		"Invite declined",
		fmt.Sprintf("%s declined your team invite.", user.DisplayName()),
		&code)
	return nil
}

func (s *inviteService) Cancel(ctx context.Context, code string, requestingUserID int) error {
	invite, err := s.inviteRepo.GetByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return ErrInviteNotFound
		}
		return err
	}

	if invite.InviterID != requestingUserID {
		return ErrNotInviteOwner
	}
	if invite.Status != models.InvitePending {
		return fmt.Errorf("%w: invite is %s", ErrInviteNotPending, invite.Status)
	}

	// В отличие от заявок на игру, отменённые приглашения не хранятся.
	if err := s.inviteRepo.DeletePending(ctx, nil, invite.ID); err != nil {
		if errors.Is(err, repositories.ErrInviteStatusConflict) {
			return fmt.Errorf("%w: invite is no longer pending", ErrInviteNotPending)
		}
		return err
	}
	return nil
}

func (s *inviteService) ListSent(ctx context.Context, inviterID int) ([]*models.TeamInvite, error) {
	invites, err := s.inviteRepo.ListByInviter(ctx, inviterID)
	if err != nil {
		return nil, err
	}
	s.applyEffectiveStatus(invites)
	return invites, nil
}

func (s *inviteService) ListReceived(ctx context.Context, userID int) ([]*models.TeamInvite, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	invites, err := s.inviteRepo.ListForInvitee(ctx, userID, user.Email)
	if err != nil {
		return nil, err
	}
	s.applyEffectiveStatus(invites)
	return invites, nil
}

func (s *inviteService) applyEffectiveStatus(invites []*models.TeamInvite) {
	now := s.now()
	for _, inv := range invites {
		inv.Status = inv.EffectiveStatus(now)
	}
}

// matchInvitee сверяет действующего пользователя с адресатом приглашения.
func matchInvitee(invite *models.TeamInvite, user *models.User) error {
	switch invite.Invitee.Kind {
	case models.InviteeByUser:
		if invite.Invitee.UserID != user.ID {
			return ErrInviteeMismatch
		}
	case models.InviteeByEmail:
		if !strings.EqualFold(invite.Invitee.Email, user.Email) {
			return ErrInviteeMismatch
		}
	}
	return nil
}
