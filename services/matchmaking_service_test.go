package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courtside/matchplay/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func sptr(v models.SkillLevel) *models.SkillLevel { return &v }

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type matchmakingFixture struct {
	svc      *matchmakingService
	requests *fakeMatchRequestRepo
	users    *fakeUserRepo
	games    *fakeGameRepo
	notifier *fakeNotifier
}

func newMatchmakingFixture(t *testing.T, users ...*models.User) *matchmakingFixture {
	t.Helper()
	f := &matchmakingFixture{
		requests: newFakeMatchRequestRepo(),
		users:    newFakeUserRepo(users...),
		games:    newFakeGameRepo(),
		notifier: &fakeNotifier{},
	}
	svc := NewMatchmakingService(&fakeTxManager{}, f.requests, f.users, f.games, f.notifier, testLogger(), 0)
	f.svc = svc.(*matchmakingService)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *matchmakingFixture) mustCreate(t *testing.T, input CreateMatchRequestInput) *models.MatchRequest {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), input)
	require.NoError(t, err)
	return req
}

func TestCreateRequestValidation(t *testing.T) {
	user := &models.User{ID: 1, Email: "a@x.io"}
	f := newMatchmakingFixture(t, user)

	cases := []struct {
		name  string
		input CreateMatchRequestInput
	}{
		{"unknown format", CreateMatchRequestInput{RequesterID: 1, Format: "triples"}},
		{"inverted skill range", CreateMatchRequestInput{
			RequesterID: 1, Format: models.FormatSingles,
			SkillMin: sptr(models.SkillExpert), SkillMax: sptr(models.SkillBeginner),
		}},
		{"non-positive max distance", CreateMatchRequestInput{
			RequesterID: 1, Format: models.FormatSingles,
			Location:      &models.GeoPoint{Lat: 48.85, Lon: 2.35},
			MaxDistanceKm: fptr(0),
		}},
		{"max distance without location", CreateMatchRequestInput{
			RequesterID: 1, Format: models.FormatSingles, MaxDistanceKm: fptr(10),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateRequest(context.Background(), tc.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}

	_, err := f.svc.CreateRequest(context.Background(), CreateMatchRequestInput{
		RequesterID: 99, Format: models.FormatSingles,
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateRequestAppliesDefaultTTL(t *testing.T) {
	f := newMatchmakingFixture(t, &models.User{ID: 1, Email: "a@x.io"})

	req := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 1, Format: models.FormatSingles})
	assert.Equal(t, testNow.Add(defaultMatchRequestTTL), req.ExpiresAt)
	assert.Equal(t, models.MatchRequestPending, req.Status)
}

func TestCancelRequestOwnership(t *testing.T) {
	f := newMatchmakingFixture(t,
		&models.User{ID: 1, Email: "a@x.io"},
		&models.User{ID: 2, Email: "b@x.io"},
	)
	req := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 1, Format: models.FormatSingles})

	err := f.svc.CancelRequest(context.Background(), req.ID, 2)
	assert.ErrorIs(t, err, ErrNotRequestOwner)

	require.NoError(t, f.svc.CancelRequest(context.Background(), req.ID, 1))

	// Повторная отмена: заявка уже не pending.
	err = f.svc.CancelRequest(context.Background(), req.ID, 1)
	assert.ErrorIs(t, err, ErrMatchRequestNotPending)
}

func TestFindCandidatesFiltersAndOrders(t *testing.T) {
	paris := &models.GeoPoint{Lat: 48.8566, Lon: 2.3522}
	versailles := &models.GeoPoint{Lat: 48.8049, Lon: 2.1204}
	london := &models.GeoPoint{Lat: 51.5074, Lon: -0.1278}

	f := newMatchmakingFixture(t,
		&models.User{ID: 1, Email: "me@x.io", Rating: fptr(1500), SkillLevel: sptr(models.SkillIntermediate), Location: paris},
		&models.User{ID: 2, Email: "close@x.io", Rating: fptr(1510), SkillLevel: sptr(models.SkillIntermediate), Location: versailles},
		&models.User{ID: 3, Email: "far@x.io", Rating: fptr(1500), SkillLevel: sptr(models.SkillIntermediate), Location: london},
		&models.User{ID: 4, Email: "pro@x.io", Rating: fptr(2400), SkillLevel: sptr(models.SkillPro), Location: versailles},
		&models.User{ID: 5, Email: "picky@x.io", Rating: fptr(1500), SkillLevel: sptr(models.SkillIntermediate), Location: versailles},
	)

	mine := f.mustCreate(t, CreateMatchRequestInput{
		RequesterID: 1, Format: models.FormatSingles,
		SkillMin: sptr(models.SkillBeginner), SkillMax: sptr(models.SkillAdvanced),
		Location: paris, MaxDistanceKm: fptr(50),
	})
	// Подходит: рядом, уровень в диапазоне.
	near := f.mustCreate(t, CreateMatchRequestInput{
		RequesterID: 2, Format: models.FormatSingles, Location: versailles,
	})
	// Отсекается лимитом дистанции моей заявки.
	f.mustCreate(t, CreateMatchRequestInput{
		RequesterID: 3, Format: models.FormatSingles, Location: london,
	})
	// Отсекается моим диапазоном уровней.
	f.mustCreate(t, CreateMatchRequestInput{
		RequesterID: 4, Format: models.FormatSingles, Location: versailles,
	})
	// Отсекается в обратную сторону: мой уровень не попадает в диапазон кандидата.
	f.mustCreate(t, CreateMatchRequestInput{
		RequesterID: 5, Format: models.FormatSingles, Location: versailles,
		SkillMin: sptr(models.SkillExpert),
	})
	// Другой формат вообще не рассматривается.
	f.mustCreate(t, CreateMatchRequestInput{RequesterID: 2, Format: models.FormatDoubles})

	candidates, err := f.svc.FindCandidates(context.Background(), mine.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, near.ID, candidates[0].Request.ID)
	require.NotNil(t, candidates[0].DistanceKm)
	assert.InDelta(t, 18, *candidates[0].DistanceKm, 3)
	assert.Greater(t, candidates[0].Score, 0.0)
}

func TestFindCandidatesExcludesOwnRequest(t *testing.T) {
	f := newMatchmakingFixture(t, &models.User{ID: 1, Email: "a@x.io"})
	mine := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 1, Format: models.FormatSingles})

	candidates, err := f.svc.FindCandidates(context.Background(), mine.ID)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindCandidatesOrderIsDeterministic(t *testing.T) {
	f := newMatchmakingFixture(t,
		&models.User{ID: 1, Email: "me@x.io", Rating: fptr(1500)},
		&models.User{ID: 2, Email: "b@x.io", Rating: fptr(1500)},
		&models.User{ID: 3, Email: "c@x.io", Rating: fptr(1500)},
		&models.User{ID: 4, Email: "d@x.io", Rating: fptr(1700)},
	)
	mine := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 1, Format: models.FormatSingles})
	first := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 2, Format: models.FormatSingles})
	second := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 3, Format: models.FormatSingles})
	weaker := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 4, Format: models.FormatSingles})

	// Разносим created_at, чтобы tie-break был детерминированным.
	f.requests.mu.Lock()
	f.requests.requests[first.ID].CreatedAt = testNow.Add(-2 * time.Hour)
	f.requests.requests[second.ID].CreatedAt = testNow.Add(-1 * time.Hour)
	f.requests.mu.Unlock()

	candidates, err := f.svc.FindCandidates(context.Background(), mine.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// Равные score идут по возрасту заявки, худший score - последним.
	assert.Equal(t, first.ID, candidates[0].Request.ID)
	assert.Equal(t, second.ID, candidates[1].Request.ID)
	assert.Equal(t, weaker.ID, candidates[2].Request.ID)
	assert.Equal(t, candidates[0].Score, candidates[1].Score)
	assert.Less(t, candidates[2].Score, candidates[1].Score)
}

func TestSuggestionsWithoutActiveRequest(t *testing.T) {
	f := newMatchmakingFixture(t, &models.User{ID: 1, Email: "a@x.io"})

	suggestions, err := f.svc.SuggestionsFor(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestCommitMatchesPairAndNotifies(t *testing.T) {
	f := newMatchmakingFixture(t,
		&models.User{ID: 1, Email: "a@x.io"},
		&models.User{ID: 2, Email: "b@x.io"},
	)
	mine := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 1, Format: models.FormatSingles})
	theirs := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 2, Format: models.FormatSingles})

	session, err := f.svc.Commit(context.Background(), mine.ID, theirs.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEmpty(t, session.PublicCode)
	assert.Equal(t, []int{1}, session.Team1)
	assert.Equal(t, []int{2}, session.Team2)

	for _, id := range []int{mine.ID, theirs.ID} {
		stored, err := f.requests.GetByID(context.Background(), nil, id)
		require.NoError(t, err)
		assert.Equal(t, models.MatchRequestMatched, stored.Status)
		require.NotNil(t, stored.MatchedGameID)
		assert.Equal(t, session.ID, *stored.MatchedGameID)
	}

	found := f.notifier.byType(models.NotificationMatchFound)
	require.Len(t, found, 2)
	assert.ElementsMatch(t, []int{1, 2}, []int{found[0].UserID, found[1].UserID})
}

func TestCommitGuards(t *testing.T) {
	f := newMatchmakingFixture(t,
		&models.User{ID: 1, Email: "a@x.io"},
		&models.User{ID: 2, Email: "b@x.io"},
		&models.User{ID: 3, Email: "c@x.io"},
	)
	mine := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 1, Format: models.FormatSingles})
	theirs := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 2, Format: models.FormatSingles})
	doubles := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 3, Format: models.FormatDoubles})

	_, err := f.svc.Commit(context.Background(), mine.ID, mine.ID, 1)
	assert.ErrorIs(t, err, ErrSelfMatch)

	_, err = f.svc.Commit(context.Background(), mine.ID, doubles.ID, 1)
	assert.ErrorIs(t, err, ErrFormatMismatch)

	// Коммитить можно только свою заявку.
	_, err = f.svc.Commit(context.Background(), mine.ID, theirs.ID, 3)
	assert.ErrorIs(t, err, ErrNotRequestOwner)
}

func TestCommitExpiredRequest(t *testing.T) {
	f := newMatchmakingFixture(t,
		&models.User{ID: 1, Email: "a@x.io"},
		&models.User{ID: 2, Email: "b@x.io"},
	)
	mine := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 1, Format: models.FormatSingles})
	theirs := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 2, Format: models.FormatSingles, TTL: time.Hour})

	f.svc.now = func() time.Time { return testNow.Add(2 * time.Hour) }

	_, err := f.svc.Commit(context.Background(), mine.ID, theirs.ID, 1)
	assert.ErrorIs(t, err, ErrMatchRequestExpired)
}

// Конкурентные коммиты, пересекающиеся по одной заявке: ровно один выигрывает,
// сессия создаётся одна.
func TestConcurrentCommitsSingleWinner(t *testing.T) {
	f := newMatchmakingFixture(t,
		&models.User{ID: 1, Email: "a@x.io"},
		&models.User{ID: 2, Email: "b@x.io"},
		&models.User{ID: 3, Email: "c@x.io"},
	)
	shared := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 1, Format: models.FormatSingles})
	second := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 2, Format: models.FormatSingles})
	third := f.mustCreate(t, CreateMatchRequestInput{RequesterID: 3, Format: models.FormatSingles})

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.svc.Commit(context.Background(), second.ID, shared.ID, 2)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.svc.Commit(context.Background(), third.ID, shared.ID, 3)
	}()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrMatchRequestNotPending), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)

	f.games.mu.Lock()
	sessionCount := len(f.games.sessions)
	f.games.mu.Unlock()
	assert.Equal(t, 1, sessionCount)
}
