package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/repositories"
)

// In-memory фейки репозиториев для сервисных тестов. Повторяют контракт
// postgres-реализаций, включая guarded-переходы: 0 затронутых строк -
// соответствующий StatusConflict.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxManager сериализует "транзакции" общим мьютексом - приближение
// row-level блокировок: конкурирующие accept выполняются по одному.
type fakeTxManager struct {
	mu sync.Mutex
}

func (m *fakeTxManager) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(nil)
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[int]*models.User
	ratings map[string]float64 // "userID/format"
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int]*models.User), ratings: make(map[string]float64)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) setRating(userID int, format models.GameFormat, rating float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings[fmt.Sprintf("%d/%s", userID, format)] = rating
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) RatingForFormat(_ context.Context, _ repositories.SQLExecutor, userID int, format models.GameFormat) (*float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rating, ok := r.ratings[fmt.Sprintf("%d/%s", userID, format)]; ok {
		return &rating, nil
	}
	return nil, nil
}

type fakeMatchRequestRepo struct {
	mu       sync.Mutex
	nextID   int
	requests map[int]*models.MatchRequest
}

func newFakeMatchRequestRepo() *fakeMatchRequestRepo {
	return &fakeMatchRequestRepo{requests: make(map[int]*models.MatchRequest)}
}

func (r *fakeMatchRequestRepo) Create(_ context.Context, request *models.MatchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	request.ID = r.nextID
	request.Status = models.MatchRequestPending
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	stored := *request
	r.requests[request.ID] = &stored
	return nil
}

func (r *fakeMatchRequestRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.MatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrMatchRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (r *fakeMatchRequestRepo) FindActiveByRequester(_ context.Context, requesterID int, now time.Time) (*models.MatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.RequesterID == requesterID && req.Status == models.MatchRequestPending && !req.ExpiredAt(now) {
			copied := *req
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchRequestNotFound
}

func (r *fakeMatchRequestRepo) ListOpen(_ context.Context, format models.GameFormat, now time.Time) ([]*models.MatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.MatchRequest
	for _, req := range r.requests {
		if req.Format == format && req.Status == models.MatchRequestPending && !req.ExpiredAt(now) {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeMatchRequestRepo) MarkCancelled(_ context.Context, id, requesterID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.RequesterID != requesterID || req.Status != models.MatchRequestPending {
		return repositories.ErrMatchRequestStatusConflict
	}
	req.Status = models.MatchRequestCancelled
	return nil
}

func (r *fakeMatchRequestRepo) MarkMatchedPair(_ context.Context, _ repositories.SQLExecutor, idA, idB, gameID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, okA := r.requests[idA]
	b, okB := r.requests[idB]
	if !okA || !okB || a.Status != models.MatchRequestPending || b.Status != models.MatchRequestPending {
		return repositories.ErrMatchRequestStatusConflict
	}
	for _, req := range []*models.MatchRequest{a, b} {
		req.Status = models.MatchRequestMatched
		id := gameID
		req.MatchedGameID = &id
	}
	return nil
}

func (r *fakeMatchRequestRepo) ExpireDue(_ context.Context, now time.Time) ([]*models.MatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*models.MatchRequest
	for _, req := range r.requests {
		if req.Status == models.MatchRequestPending && req.ExpiredAt(now) {
			req.Status = models.MatchRequestExpired
			copied := *req
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

type fakeInviteRepo struct {
	mu      sync.Mutex
	nextID  int
	invites map[int]*models.TeamInvite
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{invites: make(map[int]*models.TeamInvite)}
}

func (r *fakeInviteRepo) Create(_ context.Context, _ repositories.SQLExecutor, invite *models.TeamInvite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.invites {
		if existing.Code == invite.Code {
			return repositories.ErrInviteCodeConflict
		}
		if existing.Status == models.InvitePending &&
			existing.InviterID == invite.InviterID &&
			existing.Event.Same(invite.Event) &&
			existing.Invitee == invite.Invitee {
			return repositories.ErrInvitePendingDuplicate
		}
	}
	r.nextID++
	invite.ID = r.nextID
	invite.Status = models.InvitePending
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}
	stored := *invite
	r.invites[invite.ID] = &stored
	return nil
}

func (r *fakeInviteRepo) getByCode(code string) (*models.TeamInvite, error) {
	for _, inv := range r.invites {
		if inv.Code == code {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, repositories.ErrInviteNotFound
}

func (r *fakeInviteRepo) GetByCode(_ context.Context, _ repositories.SQLExecutor, code string) (*models.TeamInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getByCode(code)
}

func (r *fakeInviteRepo) GetByCodeForUpdate(_ context.Context, _ repositories.SQLExecutor, code string) (*models.TeamInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getByCode(code)
}

func (r *fakeInviteRepo) FindPending(_ context.Context, inviterID int, event models.EventRef, invitee models.InviteeRef) (*models.TeamInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invites {
		if inv.Status == models.InvitePending && inv.InviterID == inviterID &&
			inv.Event.Same(event) && inv.Invitee == invitee {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, repositories.ErrInviteNotFound
}

func (r *fakeInviteRepo) markTerminal(id int, status models.InviteStatus, resolvedUserID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[id]
	if !ok || inv.Status != models.InvitePending {
		return repositories.ErrInviteStatusConflict
	}
	inv.Status = status
	if resolvedUserID != nil {
		inv.InviteeUserID = resolvedUserID
	}
	return nil
}

func (r *fakeInviteRepo) MarkAccepted(_ context.Context, _ repositories.SQLExecutor, id, resolvedUserID int) error {
	return r.markTerminal(id, models.InviteAccepted, &resolvedUserID)
}

func (r *fakeInviteRepo) MarkDeclined(_ context.Context, _ repositories.SQLExecutor, id, resolvedUserID int) error {
	return r.markTerminal(id, models.InviteDeclined, &resolvedUserID)
}

func (r *fakeInviteRepo) MarkExpired(_ context.Context, _ repositories.SQLExecutor, id int) error {
	return r.markTerminal(id, models.InviteExpired, nil)
}

func (r *fakeInviteRepo) DeletePending(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[id]
	if !ok || inv.Status != models.InvitePending {
		return repositories.ErrInviteStatusConflict
	}
	delete(r.invites, id)
	return nil
}

func (r *fakeInviteRepo) ListByInviter(_ context.Context, inviterID int) ([]*models.TeamInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TeamInvite
	for _, inv := range r.invites {
		if inv.InviterID == inviterID {
			copied := *inv
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) ListForInvitee(_ context.Context, userID int, email string) ([]*models.TeamInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TeamInvite
	for _, inv := range r.invites {
		switch inv.Invitee.Kind {
		case models.InviteeByUser:
			if inv.Invitee.UserID != userID {
				continue
			}
		case models.InviteeByEmail:
			if !strings.EqualFold(inv.Invitee.Email, email) {
				continue
			}
		}
		copied := *inv
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeInviteRepo) ExpireDue(_ context.Context, now time.Time) ([]*models.TeamInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*models.TeamInvite
	for _, inv := range r.invites {
		if inv.Status == models.InvitePending && now.After(inv.ExpiresAt) {
			inv.Status = models.InviteExpired
			copied := *inv
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range tournaments {
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) IncrementParticipants(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return repositories.ErrTournamentCapacity
	}
	t.CurrentParticipants++
	return nil
}

func (r *fakeTournamentRepo) participants(id int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tournaments[id].CurrentParticipants
}

type fakeLeagueRepo struct {
	mu           sync.Mutex
	nextID       int
	leagues      map[int]*models.League
	seasons      map[int]*models.LeagueSeason // по id лиги
	participants []*models.LeagueParticipant
	members      []*models.ParticipantMember
}

func newFakeLeagueRepo(leagues ...*models.League) *fakeLeagueRepo {
	r := &fakeLeagueRepo{
		leagues: make(map[int]*models.League),
		seasons: make(map[int]*models.LeagueSeason),
	}
	for _, l := range leagues {
		r.leagues[l.ID] = l
	}
	return r
}

func (r *fakeLeagueRepo) setCurrentSeason(season *models.LeagueSeason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seasons[season.LeagueID] = season
}

func (r *fakeLeagueRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeLeagueRepo) GetCurrentSeason(_ context.Context, _ repositories.SQLExecutor, leagueID int) (*models.LeagueSeason, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seasons[leagueID]
	if !ok {
		return nil, repositories.ErrSeasonNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeLeagueRepo) CreateParticipant(_ context.Context, _ repositories.SQLExecutor, p *models.LeagueParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	stored := *p
	r.participants = append(r.participants, &stored)
	return nil
}

func (r *fakeLeagueRepo) AddMembers(_ context.Context, _ repositories.SQLExecutor, members []*models.ParticipantMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range members {
		r.nextID++
		m.ID = r.nextID
		stored := *m
		r.members = append(r.members, &stored)
	}
	return nil
}

type fakeRegistrationRepo struct {
	mu     sync.Mutex
	nextID int
	teams  []*models.TeamRegistration
	rows   []*models.RegistrationPlayer
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{}
}

func (r *fakeRegistrationRepo) CreateTeam(_ context.Context, _ repositories.SQLExecutor, reg *models.TeamRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	reg.ID = r.nextID
	stored := *reg
	r.teams = append(r.teams, &stored)
	return nil
}

func (r *fakeRegistrationRepo) AddPlayers(_ context.Context, _ repositories.SQLExecutor, players []*models.RegistrationPlayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range players {
		r.nextID++
		p.ID = r.nextID
		stored := *p
		r.rows = append(r.rows, &stored)
	}
	return nil
}

func (r *fakeRegistrationRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.TeamRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TeamRegistration
	for _, t := range r.teams {
		if t.TournamentID == tournamentID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeListingRepo struct {
	mu       sync.Mutex
	nextID   int
	listings map[int]*models.PartnerListing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[int]*models.PartnerListing)}
}

func (r *fakeListingRepo) Create(_ context.Context, listing *models.PartnerListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.listings {
		if existing.Status == models.ListingActive &&
			existing.UserID == listing.UserID &&
			existing.Event.Same(listing.Event) {
			return repositories.ErrListingDuplicate
		}
	}
	r.nextID++
	listing.ID = r.nextID
	listing.Status = models.ListingActive
	stored := *listing
	r.listings[listing.ID] = &stored
	return nil
}

func (r *fakeListingRepo) GetByID(_ context.Context, id int) (*models.PartnerListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, repositories.ErrListingNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeListingRepo) ListByEvent(_ context.Context, event models.EventRef, skillMin, skillMax *models.SkillLevel) ([]*models.PartnerListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PartnerListing
	for _, l := range r.listings {
		if l.Status != models.ListingActive || !l.Event.Same(event) {
			continue
		}
		copied := *l
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeListingRepo) DeleteActive(_ context.Context, id, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.UserID != userID || l.Status != models.ListingActive {
		return repositories.ErrListingStatusConflict
	}
	delete(r.listings, id)
	return nil
}

func (r *fakeListingRepo) MarkMatchedForUsers(_ context.Context, _ repositories.SQLExecutor, event models.EventRef, userIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listings {
		if l.Status != models.ListingActive || !l.Event.Same(event) {
			continue
		}
		for _, id := range userIDs {
			if l.UserID == id {
				l.Status = models.ListingMatched
			}
		}
	}
	return nil
}

type fakeGameRepo struct {
	mu       sync.Mutex
	nextID   int
	sessions []*models.GameSession
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{}
}

func (r *fakeGameRepo) CreateSession(_ context.Context, _ repositories.SQLExecutor, session *models.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	session.ID = r.nextID
	stored := *session
	r.sessions = append(r.sessions, &stored)
	return nil
}

type sentNotification struct {
	UserID    int
	Type      models.NotificationType
	Title     string
	Message   string
	ActionRef *string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *fakeNotifier) Notify(_ context.Context, userID int, typ models.NotificationType, title, message string, actionRef *string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		ActionRef: actionRef,
	})
}

func (n *fakeNotifier) byType(typ models.NotificationType) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}
