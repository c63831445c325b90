package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/repositories"
)

// AcceptResult - итог атомарного принятия приглашения. Ровно одно из полей
// Registration/Participant заполнено, в зависимости от вида события.
type AcceptResult struct {
	Invite       *models.TeamInvite        `json:"invite"`
	Registration *models.TeamRegistration  `json:"registration,omitempty"`
	Participant  *models.LeagueParticipant `json:"participant,omitempty"`
}

// RegistrationService - координатор критического пути "accept → регистрация".
// Вся последовательность (guarded-чтение, валидация, переход в accepted,
// создание команды и двух строк игроков, инкремент счётчика) выполняется в
// одной транзакции; уведомление уходит строго после коммита.
type RegistrationService interface {
	AcceptInvite(ctx context.Context, code string, acceptingUserID int) (*AcceptResult, error)
}

type registrationService struct {
	tx             repositories.TxManager
	inviteRepo     repositories.InviteRepository
	userRepo       repositories.UserRepository
	tournamentRepo repositories.TournamentRepository
	leagueRepo     repositories.LeagueRepository
	regRepo        repositories.RegistrationRepository
	listingRepo    repositories.ListingRepository
	notifier       Notifier
	logger         *slog.Logger
	now            func() time.Time
}

func NewRegistrationService(
	tx repositories.TxManager,
	inviteRepo repositories.InviteRepository,
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	leagueRepo repositories.LeagueRepository,
	regRepo repositories.RegistrationRepository,
	listingRepo repositories.ListingRepository,
	notifier Notifier,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tx:             tx,
		inviteRepo:     inviteRepo,
		userRepo:       userRepo,
		tournamentRepo: tournamentRepo,
		leagueRepo:     leagueRepo,
		regRepo:        regRepo,
		listingRepo:    listingRepo,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *registrationService) AcceptInvite(ctx context.Context, code string, acceptingUserID int) (*AcceptResult, error) {
	var (
		result   *AcceptResult
		accepter *models.User
	)

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// Блокирующее чтение: конкурирующий accept того же кода встанет на
		// этом SELECT и после нашего коммита увидит терминальный статус.
		invite, err := s.inviteRepo.GetByCodeForUpdate(ctx, exec, code)
		if err != nil {
			if errors.Is(err, repositories.ErrInviteNotFound) {
				return ErrInviteNotFound
			}
			return err
		}

		if invite.Status != models.InvitePending {
			// Проигравший гонку получает детерминированный отказ с именем
			// фактического статуса, не тихий успех.
			return fmt.Errorf("%w: invite already %s", ErrInviteNotPending, invite.Status)
		}
		if s.now().After(invite.ExpiresAt) {
			// Фиксируем истечение как побочный эффект и отказываем.
			if err := s.inviteRepo.MarkExpired(ctx, exec, invite.ID); err != nil {
				return err
			}
			return ErrInviteExpired
		}
		if acceptingUserID == invite.InviterID {
			return ErrSelfAccept
		}

		accepter, err = s.userRepo.GetByID(ctx, exec, acceptingUserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := matchInvitee(invite, accepter); err != nil {
			return err
		}

		inviter, err := s.userRepo.GetByID(ctx, exec, invite.InviterID)
		if err != nil {
			return fmt.Errorf("failed to load inviter %d: %w", invite.InviterID, err)
		}

		if err := s.inviteRepo.MarkAccepted(ctx, exec, invite.ID, acceptingUserID); err != nil {
			if errors.Is(err, repositories.ErrInviteStatusConflict) {
				return fmt.Errorf("%w: invite already accepted or declined", ErrInviteNotPending)
			}
			return err
		}
		invite.Status = models.InviteAccepted
		invite.InviteeUserID = &acceptingUserID

		teamName := defaultTeamName(invite, inviter, accepter)

		result = &AcceptResult{Invite: invite}
		switch invite.Event.Kind {
		case models.EventTournament:
			reg, err := s.registerForTournament(ctx, exec, invite, teamName, inviter, accepter)
			if err != nil {
				return err
			}
			result.Registration = reg
		case models.EventLeague:
			participant, err := s.registerForLeague(ctx, exec, invite, teamName, inviter, accepter)
			if err != nil {
				return err
			}
			result.Participant = participant
		default:
			return fmt.Errorf("%w: invite has no event reference", ErrValidationFailed)
		}

		// Активные объявления обоих игроков по этому событию закрываются
		// той же транзакцией.
		return s.listingRepo.MarkMatchedForUsers(ctx, exec, invite.Event,
			[]int{invite.InviterID, acceptingUserID})
	})
	if err != nil {
		return nil, err
	}

	code = result.Invite.Code
	s.notifier.Notify(ctx, result.Invite.InviterID, models.NotificationInviteAccepted,
		"Invite accepted",
		fmt.Sprintf("%s accepted your team invite.", accepter.DisplayName()),
		&code)

	return result, nil
}

func (s *registrationService) registerForTournament(
	ctx context.Context,
	exec repositories.SQLExecutor,
	invite *models.TeamInvite,
	teamName string,
	inviter, accepter *models.User,
) (*models.TeamRegistration, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, invite.Event.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.TournamentRegistration {
		return nil, fmt.Errorf("%w: tournament is %s", ErrRegistrationNotOpen, tournament.Status)
	}

	reg := &models.TeamRegistration{
		TournamentID: tournament.ID,
		DivisionID:   invite.Event.DivisionID,
		TeamName:     teamName,
	}
	if err := s.regRepo.CreateTeam(ctx, exec, reg); err != nil {
		return nil, err
	}

	players := []*models.RegistrationPlayer{
		{RegistrationID: reg.ID, UserID: inviter.ID, IsCaptain: true},
		{RegistrationID: reg.ID, UserID: accepter.ID, IsCaptain: false},
	}
	for _, p := range players {
		p.RatingSnapshot, err = s.ratingSnapshot(ctx, exec, p.UserID, tournament.Format)
		if err != nil {
			return nil, err
		}
	}
	if err := s.regRepo.AddPlayers(ctx, exec, players); err != nil {
		return nil, err
	}
	reg.Players = []models.RegistrationPlayer{*players[0], *players[1]}

	// Счётчик участников мутируется только здесь, внутри транзакции,
	// guarded-инкрементом - ровно +1 на успешную регистрацию.
	if err := s.tournamentRepo.IncrementParticipants(ctx, exec, tournament.ID); err != nil {
		if errors.Is(err, repositories.ErrTournamentCapacity) {
			return nil, ErrTournamentFull
		}
		return nil, err
	}

	return reg, nil
}

func (s *registrationService) registerForLeague(
	ctx context.Context,
	exec repositories.SQLExecutor,
	invite *models.TeamInvite,
	teamName string,
	inviter, accepter *models.User,
) (*models.LeagueParticipant, error) {
	league, err := s.leagueRepo.GetByID(ctx, exec, invite.Event.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}

	// Лиговая регистрация всегда привязана к текущему сезону.
	season, err := s.leagueRepo.GetCurrentSeason(ctx, exec, league.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrNoCurrentSeason
		}
		return nil, err
	}

	participant := &models.LeagueParticipant{
		LeagueID: league.ID,
		SeasonID: season.ID,
		TeamName: teamName,
	}
	if err := s.leagueRepo.CreateParticipant(ctx, exec, participant); err != nil {
		return nil, err
	}

	members := []*models.ParticipantMember{
		{ParticipantID: participant.ID, UserID: inviter.ID, IsCaptain: true},
		{ParticipantID: participant.ID, UserID: accepter.ID, IsCaptain: false},
	}
	for _, m := range members {
		m.RatingSnapshot, err = s.ratingSnapshot(ctx, exec, m.UserID, league.Format)
		if err != nil {
			return nil, err
		}
	}
	if err := s.leagueRepo.AddMembers(ctx, exec, members); err != nil {
		return nil, err
	}
	participant.Members = []models.ParticipantMember{*members[0], *members[1]}

	return participant, nil
}

// ratingSnapshot фиксирует рейтинг игрока по формату события; при отсутствии
// рейтинга подставляется DefaultSeedRating.
func (s *registrationService) ratingSnapshot(ctx context.Context, exec repositories.SQLExecutor, userID int, format models.GameFormat) (float64, error) {
	rating, err := s.userRepo.RatingForFormat(ctx, exec, userID, format)
	if err != nil {
		return 0, err
	}
	if rating == nil {
		return models.DefaultSeedRating, nil
	}
	return *rating, nil
}

func defaultTeamName(invite *models.TeamInvite, inviter, accepter *models.User) string {
	if invite.TeamName != nil && *invite.TeamName != "" {
		return *invite.TeamName
	}
	return fmt.Sprintf("%s & %s", inviter.DisplayName(), accepter.DisplayName())
}
