package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/repositories"
)

type CreateListingInput struct {
	UserID   int
	Event    models.EventRef
	SkillMin *models.SkillLevel
	SkillMax *models.SkillLevel
	Message  *string
}

type ListingFilter struct {
	Event    models.EventRef
	SkillMin *models.SkillLevel
	SkillMax *models.SkillLevel
}

type ListingService interface {
	Create(ctx context.Context, input CreateListingInput) (*models.PartnerListing, error)
	Delete(ctx context.Context, listingID, userID int) error
	ListByEvent(ctx context.Context, filter ListingFilter) ([]*models.PartnerListing, error)
	// Contact шлёт владельцу объявления уведомление от заинтересованного
	// игрока. Состояние объявления не меняется.
	Contact(ctx context.Context, listingID, fromUserID int, message string) error
}

type listingService struct {
	listingRepo    repositories.ListingRepository
	userRepo       repositories.UserRepository
	tournamentRepo repositories.TournamentRepository
	leagueRepo     repositories.LeagueRepository
	notifier       Notifier
}

func NewListingService(
	listingRepo repositories.ListingRepository,
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	leagueRepo repositories.LeagueRepository,
	notifier Notifier,
) ListingService {
	return &listingService{
		listingRepo:    listingRepo,
		userRepo:       userRepo,
		tournamentRepo: tournamentRepo,
		leagueRepo:     leagueRepo,
		notifier:       notifier,
	}
}

func (s *listingService) Create(ctx context.Context, input CreateListingInput) (*models.PartnerListing, error) {
	if !input.Event.Valid() {
		return nil, fmt.Errorf("%w: exactly one of tournament or league must be referenced", ErrValidationFailed)
	}
	if input.SkillMin != nil && input.SkillMax != nil && input.SkillMin.Index() > input.SkillMax.Index() {
		return nil, fmt.Errorf("%w: skill_min is above skill_max", ErrValidationFailed)
	}

	if _, err := s.userRepo.GetByID(ctx, nil, input.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := s.checkEventExists(ctx, input.Event); err != nil {
		return nil, err
	}

	listing := &models.PartnerListing{
		UserID:   input.UserID,
		Event:    input.Event,
		SkillMin: input.SkillMin,
		SkillMax: input.SkillMax,
		Message:  input.Message,
	}
	if err := s.listingRepo.Create(ctx, listing); err != nil {
		if errors.Is(err, repositories.ErrListingDuplicate) {
			return nil, ErrDuplicateActiveListing
		}
		return nil, err
	}
	return listing, nil
}

func (s *listingService) checkEventExists(ctx context.Context, event models.EventRef) error {
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

func (s *listingService) Delete(ctx context.Context, listingID, userID int) error {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return ErrListingNotFound
		}
		return err
	}
	if listing.UserID != userID {
		return ErrNotListingOwner
	}

	if err := s.listingRepo.DeleteActive(ctx, listingID, userID); err != nil {
		if errors.Is(err, repositories.ErrListingStatusConflict) {
			return fmt.Errorf("%w: listing is %s", ErrValidationFailed, listing.Status)
		}
		return err
	}
	return nil
}

func (s *listingService) ListByEvent(ctx context.Context, filter ListingFilter) ([]*models.PartnerListing, error) {
	if !filter.Event.Valid() {
		return nil, fmt.Errorf("%w: exactly one of tournament or league must be referenced", ErrValidationFailed)
	}
	return s.listingRepo.ListByEvent(ctx, filter.Event, filter.SkillMin, filter.SkillMax)
}

func (s *listingService) Contact(ctx context.Context, listingID, fromUserID int, message string) error {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return ErrListingNotFound
		}
		return err
	}
	if listing.UserID == fromUserID {
		return fmt.Errorf("%w: cannot contact your own listing", ErrValidationFailed)
	}

	sender, err := s.userRepo.GetByID(ctx, nil, fromUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	body := fmt.Sprintf("%s is interested in your partner listing for %s.", sender.DisplayName(), listing.Event)
	if message != "" {
		body = fmt.Sprintf("%s Message: %s", body, message)
	}

	ref := listing.Event.String()
	s.notifier.Notify(ctx, listing.UserID, models.NotificationListingContact,
		"Partner listing contact", body, &ref)
	return nil
}
