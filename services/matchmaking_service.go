package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/repositories"
	"github.com/courtside/matchplay/scoring"
	"github.com/google/uuid"
)

const (
	// DefaultSuggestionLimit ограничивает выдачу SuggestionsFor.
	DefaultSuggestionLimit = 10

	defaultMatchRequestTTL = 72 * time.Hour
)

// Candidate - заявка-кандидат с дистанцией (если известна) и оценкой
// совместимости заявителей.
type Candidate struct {
	Request    *models.MatchRequest `json:"request"`
	DistanceKm *float64             `json:"distance_km,omitempty"`
	Score      float64              `json:"score"`
}

type CreateMatchRequestInput struct {
	RequesterID   int
	Format        models.GameFormat
	SkillMin      *models.SkillLevel
	SkillMax      *models.SkillLevel
	Location      *models.GeoPoint
	MaxDistanceKm *float64
	TTL           time.Duration
}

type MatchmakingService interface {
	CreateRequest(ctx context.Context, input CreateMatchRequestInput) (*models.MatchRequest, error)
	CancelRequest(ctx context.Context, requestID, requesterID int) error
	FindCandidates(ctx context.Context, requestID int) ([]Candidate, error)
	SuggestionsFor(ctx context.Context, userID, limit int) ([]Candidate, error)
	// Commit выполняет взаимный коммит: обе заявки переходят в matched,
	// создаётся игровая сессия, обе стороны получают уведомление.
	Commit(ctx context.Context, requestID, candidateRequestID, actorID int) (*models.GameSession, error)
}

type matchmakingService struct {
	tx          repositories.TxManager
	requestRepo repositories.MatchRequestRepository
	userRepo    repositories.UserRepository
	gameRepo    repositories.GameRepository
	notifier    Notifier
	logger      *slog.Logger
	requestTTL  time.Duration
	now         func() time.Time
}

func NewMatchmakingService(
	tx repositories.TxManager,
	requestRepo repositories.MatchRequestRepository,
	userRepo repositories.UserRepository,
	gameRepo repositories.GameRepository,
	notifier Notifier,
	logger *slog.Logger,
	requestTTL time.Duration,
) MatchmakingService {
	if requestTTL <= 0 {
		requestTTL = defaultMatchRequestTTL
	}
	return &matchmakingService{
		tx:          tx,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		gameRepo:    gameRepo,
		notifier:    notifier,
		logger:      logger,
		requestTTL:  requestTTL,
		now:         time.Now,
	}
}

func (s *matchmakingService) CreateRequest(ctx context.Context, input CreateMatchRequestInput) (*models.MatchRequest, error) {
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: unknown game format %q", ErrValidationFailed, input.Format)
	}
	if input.SkillMin != nil && !input.SkillMin.Valid() {
		return nil, fmt.Errorf("%w: unknown skill level %q", ErrValidationFailed, *input.SkillMin)
	}
	if input.SkillMax != nil && !input.SkillMax.Valid() {
		return nil, fmt.Errorf("%w: unknown skill level %q", ErrValidationFailed, *input.SkillMax)
	}
	if input.SkillMin != nil && input.SkillMax != nil && input.SkillMin.Index() > input.SkillMax.Index() {
		return nil, fmt.Errorf("%w: skill_min is above skill_max", ErrValidationFailed)
	}
	if input.MaxDistanceKm != nil && *input.MaxDistanceKm <= 0 {
		return nil, fmt.Errorf("%w: max_distance_km must be positive", ErrValidationFailed)
	}
	if input.MaxDistanceKm != nil && input.Location == nil {
		return nil, fmt.Errorf("%w: max_distance_km requires a location", ErrValidationFailed)
	}

	if _, err := s.userRepo.GetByID(ctx, nil, input.RequesterID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.requestTTL
	}

	request := &models.MatchRequest{
		RequesterID:   input.RequesterID,
		Format:        input.Format,
		SkillMin:      input.SkillMin,
		SkillMax:      input.SkillMax,
		Location:      input.Location,
		MaxDistanceKm: input.MaxDistanceKm,
		ExpiresAt:     s.now().Add(ttl),
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *matchmakingService) CancelRequest(ctx context.Context, requestID, requesterID int) error {
	request, err := s.requestRepo.GetByID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchRequestNotFound) {
			return ErrMatchRequestNotFound
		}
		return err
	}
	if request.RequesterID != requesterID {
		return ErrNotRequestOwner
	}

	err = s.requestRepo.MarkCancelled(ctx, requestID, requesterID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchRequestStatusConflict) {
			return fmt.Errorf("%w: request is %s", ErrMatchRequestNotPending, request.Status)
		}
		return err
	}
	return nil
}

func (s *matchmakingService) FindCandidates(ctx context.Context, requestID int) ([]Candidate, error) {
	request, err := s.requestRepo.GetByID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchRequestNotFound) {
			return nil, ErrMatchRequestNotFound
		}
		return nil, err
	}

	now := s.now()
	if request.Status != models.MatchRequestPending || request.ExpiredAt(now) {
		return nil, fmt.Errorf("%w: request is %s", ErrMatchRequestNotPending, request.Status)
	}

	requester, err := s.userRepo.GetByID(ctx, nil, request.RequesterID)
	if err != nil {
		return nil, err
	}

	open, err := s.requestRepo.ListOpen(ctx, request.Format, now)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(open))
	for _, other := range open {
		if other.ID == request.ID || other.RequesterID == request.RequesterID {
			// Собственная заявка никогда не попадает в кандидаты.
			continue
		}

		counterpart, err := s.userRepo.GetByID(ctx, nil, other.RequesterID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				continue
			}
			return nil, err
		}

		// Диапазоны уровней проверяются в обе стороны независимо:
		// кандидат должен попадать в [min,max] заявителя, и наоборот.
		if !skillFits(counterpart, request.SkillMin, request.SkillMax) {
			continue
		}
		if !skillFits(requester, other.SkillMin, other.SkillMax) {
			continue
		}

		distance := requestDistance(request, other)
		if exceedsMaxDistance(request.MaxDistanceKm, distance) || exceedsMaxDistance(other.MaxDistanceKm, distance) {
			continue
		}

		candidates = append(candidates, Candidate{
			Request:    other,
			DistanceKm: distance,
			Score:      scoring.CompatibilityScore(scoring.ProfileOf(requester), scoring.ProfileOf(counterpart), distance),
		})
	}

	// Детерминированный порядок: по убыванию score, при равенстве - раньше
	// созданные впереди.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Request.CreatedAt.Before(candidates[j].Request.CreatedAt)
	})

	return candidates, nil
}

func (s *matchmakingService) SuggestionsFor(ctx context.Context, userID, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	own, err := s.requestRepo.FindActiveByRequester(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrMatchRequestNotFound) {
			// Нет активной заявки - нет и подсказок.
			return []Candidate{}, nil
		}
		return nil, err
	}

	candidates, err := s.FindCandidates(ctx, own.ID)
	if err != nil {
		return nil, err
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *matchmakingService) Commit(ctx context.Context, requestID, candidateRequestID, actorID int) (*models.GameSession, error) {
	if requestID == candidateRequestID {
		return nil, ErrSelfMatch
	}

	var (
		session *models.GameSession
		request *models.MatchRequest
		other   *models.MatchRequest
	)

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		request, err = s.requestRepo.GetByID(ctx, exec, requestID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchRequestNotFound) {
				return ErrMatchRequestNotFound
			}
			return err
		}
		other, err = s.requestRepo.GetByID(ctx, exec, candidateRequestID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchRequestNotFound) {
				return ErrMatchRequestNotFound
			}
			return err
		}

		if request.RequesterID != actorID {
			return ErrNotRequestOwner
		}
		if request.RequesterID == other.RequesterID {
			return ErrSelfMatch
		}
		if request.Format != other.Format {
			return ErrFormatMismatch
		}
		if request.Status != models.MatchRequestPending {
			return fmt.Errorf("%w: request is %s", ErrMatchRequestNotPending, request.Status)
		}
		if other.Status != models.MatchRequestPending {
			return fmt.Errorf("%w: candidate request is %s", ErrMatchRequestNotPending, other.Status)
		}
		now := s.now()
		if request.ExpiredAt(now) || other.ExpiredAt(now) {
			return ErrMatchRequestExpired
		}

		session = &models.GameSession{
			PublicCode: uuid.NewString(),
			Format:     request.Format,
			CreatedBy:  actorID,
			Team1:      []int{request.RequesterID},
			Team2:      []int{other.RequesterID},
		}
		if err := s.gameRepo.CreateSession(ctx, exec, session); err != nil {
			return err
		}

		// Guarded-переход: обе строки обязаны быть pending в момент UPDATE.
		// Повторный коммит той же пары упадёт здесь, второй сессии не будет.
		if err := s.requestRepo.MarkMatchedPair(ctx, exec, request.ID, other.ID, session.ID); err != nil {
			if errors.Is(err, repositories.ErrMatchRequestStatusConflict) {
				return fmt.Errorf("%w: one of the requests is no longer pending", ErrMatchRequestNotPending)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Уведомления строго после коммита, best-effort.
	actionRef := session.PublicCode
	for _, userID := range []int{request.RequesterID, other.RequesterID} {
		s.notifier.Notify(ctx, userID, models.NotificationMatchFound,
			"Match found",
			fmt.Sprintf("Your %s match request has been matched.", request.Format),
			&actionRef)
	}

	return session, nil
}

// skillFits проверяет попадание уровня пользователя в заявленный диапазон.
// Пользователь без уровня считается beginner, как и при скоринге.
func skillFits(u *models.User, min, max *models.SkillLevel) bool {
	lvl := models.SkillBeginner
	if u.SkillLevel != nil {
		lvl = *u.SkillLevel
	}
	return lvl.InRange(min, max)
}

func requestDistance(a, b *models.MatchRequest) *float64 {
	if a.Location == nil || b.Location == nil {
		return nil
	}
	d := scoring.DistanceKm(*a.Location, *b.Location)
	return &d
}

// exceedsMaxDistance: неизвестная дистанция не может превысить лимит.
func exceedsMaxDistance(max *float64, distance *float64) bool {
	return max != nil && distance != nil && *distance > *max
}
