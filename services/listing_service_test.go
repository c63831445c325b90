package services

import (
	"context"
	"testing"

	"github.com/courtside/matchplay/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listingFixture struct {
	svc      ListingService
	listings *fakeListingRepo
	notifier *fakeNotifier
}

func newListingFixture(t *testing.T, users ...*models.User) *listingFixture {
	t.Helper()
	f := &listingFixture{
		listings: newFakeListingRepo(),
		notifier: &fakeNotifier{},
	}
	tournaments := newFakeTournamentRepo(&models.Tournament{
		ID: 10, Name: "Spring Open", Format: models.FormatDoubles,
		Status: models.TournamentRegistration, MaxParticipants: 16,
	})
	leagues := newFakeLeagueRepo(&models.League{ID: 20, Name: "City League", Format: models.FormatDoubles})
	f.svc = NewListingService(f.listings, newFakeUserRepo(users...), tournaments, leagues, f.notifier)
	return f
}

func TestCreateListingRejectsDuplicateActive(t *testing.T) {
	f := newListingFixture(t, &models.User{ID: 1, Email: "a@x.io"})

	_, err := f.svc.Create(context.Background(), CreateListingInput{
		UserID: 1, Event: models.TournamentRef(10),
	})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), CreateListingInput{
		UserID: 1, Event: models.TournamentRef(10),
	})
	assert.ErrorIs(t, err, ErrDuplicateActiveListing)

	// Другое событие - отдельное объявление.
	_, err = f.svc.Create(context.Background(), CreateListingInput{
		UserID: 1, Event: models.LeagueRef(20),
	})
	assert.NoError(t, err)
}

func TestCreateListingValidation(t *testing.T) {
	f := newListingFixture(t, &models.User{ID: 1, Email: "a@x.io"})

	_, err := f.svc.Create(context.Background(), CreateListingInput{UserID: 1})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.Create(context.Background(), CreateListingInput{
		UserID: 1, Event: models.TournamentRef(10),
		SkillMin: sptr(models.SkillPro), SkillMax: sptr(models.SkillBeginner),
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.Create(context.Background(), CreateListingInput{
		UserID: 1, Event: models.TournamentRef(404),
	})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestDeleteListingOwnership(t *testing.T) {
	f := newListingFixture(t,
		&models.User{ID: 1, Email: "a@x.io"},
		&models.User{ID: 2, Email: "b@x.io"},
	)
	listing, err := f.svc.Create(context.Background(), CreateListingInput{
		UserID: 1, Event: models.TournamentRef(10),
	})
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), listing.ID, 2)
	assert.ErrorIs(t, err, ErrNotListingOwner)

	require.NoError(t, f.svc.Delete(context.Background(), listing.ID, 1))

	err = f.svc.Delete(context.Background(), listing.ID, 1)
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestContactListingNotifiesOwner(t *testing.T) {
	f := newListingFixture(t,
		&models.User{ID: 1, Email: "a@x.io"},
		&models.User{ID: 2, Email: "b@x.io", FirstName: "Bob"},
	)
	listing, err := f.svc.Create(context.Background(), CreateListingInput{
		UserID: 1, Event: models.TournamentRef(10),
	})
	require.NoError(t, err)

	// Собственное объявление контактировать нельзя.
	err = f.svc.Contact(context.Background(), listing.ID, 1, "hi")
	assert.ErrorIs(t, err, ErrValidationFailed)

	require.NoError(t, f.svc.Contact(context.Background(), listing.ID, 2, "let's team up"))

	contacts := f.notifier.byType(models.NotificationListingContact)
	require.Len(t, contacts, 1)
	assert.Equal(t, 1, contacts[0].UserID)
	assert.Contains(t, contacts[0].Message, "Bob")
	assert.Contains(t, contacts[0].Message, "let's team up")
}
