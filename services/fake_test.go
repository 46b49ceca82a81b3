package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/repositories"
	"github.com/Dosada05/room-bracket/storage"
	"github.com/shopspring/decimal"
)

// ------------------------
// In-memory store shared by the fake repositories
// ------------------------

type fakeStore struct {
	mu sync.Mutex

	tournaments   map[int]*models.Tournament
	teams         map[int]*models.Team
	rooms         map[int]*models.Room
	registrations []*models.Registration
	wallet        []models.WalletTransaction
	users         map[int]*models.User

	nextRoomID int
	nextTxID   int
	trace      []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments: make(map[int]*models.Tournament),
		teams:       make(map[int]*models.Team),
		rooms:       make(map[int]*models.Room),
		users:       make(map[int]*models.User),
		nextRoomID:  100,
		nextTxID:    1,
	}
}

func (s *fakeStore) record(step string) {
	s.trace = append(s.trace, step)
}

func (s *fakeStore) Trace() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.trace...)
}

func (s *fakeStore) addTournament(t *models.Tournament) *models.Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Distribution == nil {
		t.Distribution = models.PrizeDistribution{}
	}
	s.tournaments[t.ID] = t
	return t
}

// addTeams registers n paid teams with one member each. Team i gets id
// firstID+i, member id 1000+id and an entry fee payment of fee.
func (s *fakeStore) addTeams(tournamentID, firstID, n int, fee decimal.Decimal) []*models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var out []*models.Team
	for i := 0; i < n; i++ {
		id := firstID + i
		team := &models.Team{
			ID:           id,
			TournamentID: tournamentID,
			Name:         "team",
			MemberIDs:    []int{1000 + id},
			CurrentRound: 1,
			RegisteredAt: base.Add(time.Duration(i) * time.Minute),
		}
		s.teams[id] = team
		s.registrations = append(s.registrations, &models.Registration{
			ID:            len(s.registrations) + 1,
			TournamentID:  tournamentID,
			TeamID:        id,
			UserID:        1000 + id,
			PaymentStatus: models.PaymentCompleted,
			AmountPaid:    fee,
		})
		out = append(out, team)
	}
	return out
}

func (s *fakeStore) team(id int) models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTeam(s.teams[id])
}

func (s *fakeStore) tournament(id int) models.Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tournaments[id]
}

func (s *fakeStore) roomsOf(tournamentID, round int) []*models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Room
	for _, r := range s.rooms {
		if r.TournamentID == tournamentID && r.Round == round {
			c := cloneRoom(r)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (s *fakeStore) walletFor(tournamentID int, reason string) []models.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WalletTransaction
	for _, tx := range s.wallet {
		if tx.TournamentID != nil && *tx.TournamentID == tournamentID && tx.Reason != nil && *tx.Reason == reason {
			out = append(out, tx)
		}
	}
	return out
}

func cloneTeam(t *models.Team) models.Team {
	c := *t
	c.MemberIDs = append([]int(nil), t.MemberIDs...)
	return c
}

func cloneRoom(r *models.Room) models.Room {
	c := *r
	c.TeamIDs = append([]int(nil), r.TeamIDs...)
	return c
}

// serialTx stands in for row locks and rollback: fake transactions run one at
// a time, and a transaction that returns an error leaves the store as it found it.
func serialTx(mu *sync.Mutex, s *fakeStore) txRunner {
	return func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
		mu.Lock()
		defer mu.Unlock()
		restore := s.snapshot()
		if err := fn(nil); err != nil {
			restore()
			return err
		}
		return nil
	}
}

// snapshot copies the mutable state and returns a func that puts it back.
func (s *fakeStore) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	tournaments := make(map[int]*models.Tournament, len(s.tournaments))
	for id, t := range s.tournaments {
		c := *t
		tournaments[id] = &c
	}
	teams := make(map[int]*models.Team, len(s.teams))
	for id, t := range s.teams {
		c := cloneTeam(t)
		teams[id] = &c
	}
	rooms := make(map[int]*models.Room, len(s.rooms))
	for id, r := range s.rooms {
		c := cloneRoom(r)
		rooms[id] = &c
	}
	wallet := append([]models.WalletTransaction(nil), s.wallet...)
	nextRoomID, nextTxID := s.nextRoomID, s.nextTxID

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tournaments, s.teams, s.rooms, s.wallet = tournaments, teams, rooms, wallet
		s.nextRoomID, s.nextTxID = nextRoomID, nextTxID
	}
}

// ------------------------
// Fake Tournament Repository
// ------------------------

type fakeTournamentRepo struct {
	s *fakeStore

	ListStalledFunc func(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error)
}

func (r *fakeTournamentRepo) get(id int) (*models.Tournament, error) {
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.GetByID")
	return r.get(id)
}

func (r *fakeTournamentRepo) GetForUpdate(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.GetForUpdate")
	return r.get(id)
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.TournamentStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.UpdateStatus")
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.Status != from {
		return repositories.ErrTournamentStateConflict
	}
	t.Status = to
	t.StatusChangedAt = at
	return nil
}

func (r *fakeTournamentRepo) StartBracket(_ context.Context, _ repositories.SQLExecutor, id int, totalTeams int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.StartBracket")
	t := r.s.tournaments[id]
	if t.Status != models.StatusOpen {
		return repositories.ErrTournamentStateConflict
	}
	t.Status = models.StatusLive
	t.StatusChangedAt = at
	t.TotalTeams = totalTeams
	t.CurrentRound = 1
	return nil
}

func (r *fakeTournamentRepo) AdvanceRound(_ context.Context, _ repositories.SQLExecutor, id int, nextRound int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.AdvanceRound")
	t := r.s.tournaments[id]
	if t.Status != models.StatusLive || t.CurrentRound != nextRound-1 {
		return repositories.ErrTournamentStateConflict
	}
	t.CurrentRound = nextRound
	return nil
}

func (r *fakeTournamentRepo) MarkWinnerDeclared(_ context.Context, _ repositories.SQLExecutor, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.MarkWinnerDeclared")
	t := r.s.tournaments[id]
	if t.Status != models.StatusLive {
		return repositories.ErrTournamentStateConflict
	}
	t.Status = models.StatusCompleted
	t.StatusChangedAt = at
	t.WinnerDeclaredAt = &at
	return nil
}

func (r *fakeTournamentRepo) UpdatePrizes(_ context.Context, _ repositories.SQLExecutor, id int, pool decimal.Decimal, distribution models.PrizeDistribution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.UpdatePrizes")
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.PrizePool = pool
	t.Distribution = distribution
	return nil
}

func (r *fakeTournamentRepo) stalled(t *models.Tournament, cutoff time.Time) bool {
	return t.Status == models.StatusCompleted && t.WinnerDeclaredAt == nil && !t.StatusChangedAt.After(cutoff)
}

func (r *fakeTournamentRepo) ListStalled(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error) {
	if r.ListStalledFunc != nil {
		return r.ListStalledFunc(ctx, cutoff)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.ListStalled")
	var out []*models.Tournament
	for _, t := range r.s.tournaments {
		if r.stalled(t, cutoff) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) LockStalled(_ context.Context, _ repositories.SQLExecutor, id int, cutoff time.Time) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.LockStalled")
	t, ok := r.s.tournaments[id]
	if !ok || !r.stalled(t, cutoff) {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

func (r *fakeTournamentRepo) CancelStalled(_ context.Context, _ repositories.SQLExecutor, id int, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.CancelStalled")
	t := r.s.tournaments[id]
	if t.Status != models.StatusCompleted || t.WinnerDeclaredAt != nil {
		return false, nil
	}
	reason := models.ReasonAutoCancel
	t.Status = models.StatusCancelled
	t.StatusChangedAt = at
	t.CancelReason = &reason
	return true, nil
}

func (r *fakeTournamentRepo) ListWithMissingRefunds(_ context.Context) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.ListWithMissingRefunds")
	var out []*models.Tournament
	for _, t := range r.s.tournaments {
		if t.Status != models.StatusCancelled || t.CancelReason == nil {
			continue
		}
		for _, reg := range r.s.registrations {
			if reg.TournamentID != t.ID || reg.PaymentStatus != models.PaymentCompleted || !reg.AmountPaid.IsPositive() {
				continue
			}
			if !r.s.hasTx(t.ID, reg.UserID, models.ReasonAutoCancel) {
				c := *t
				out = append(out, &c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) LockCancelled(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Tournament.LockCancelled")
	t, ok := r.s.tournaments[id]
	if !ok || t.Status != models.StatusCancelled || t.CancelReason == nil {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

// ------------------------
// Fake Team Repository
// ------------------------

type fakeTeamRepo struct {
	s *fakeStore
}

func (r *fakeTeamRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, paidOnly bool) ([]*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Team.ListByTournament")
	paid := make(map[int]bool)
	for _, reg := range r.s.registrations {
		if reg.TournamentID == tournamentID && reg.PaymentStatus == models.PaymentCompleted {
			paid[reg.TeamID] = true
		}
	}
	out := make([]*models.Team, 0)
	for _, t := range r.s.teams {
		if t.TournamentID != tournamentID || (paidOnly && !paid[t.ID]) {
			continue
		}
		c := cloneTeam(t)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) Promote(_ context.Context, _ repositories.SQLExecutor, teamIDs []int, fromRound int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Team.Promote")
	for _, id := range teamIDs {
		t := r.s.teams[id]
		if t == nil || t.IsEliminated || t.CurrentRound != fromRound {
			return repositories.ErrTeamStateConflict
		}
	}
	for _, id := range teamIDs {
		r.s.teams[id].CurrentRound++
	}
	return nil
}

func (r *fakeTeamRepo) Eliminate(_ context.Context, _ repositories.SQLExecutor, teamIDs []int, round int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Team.Eliminate")
	for _, id := range teamIDs {
		t := r.s.teams[id]
		if t == nil || t.IsEliminated || t.CurrentRound != round {
			return repositories.ErrTeamStateConflict
		}
	}
	for _, id := range teamIDs {
		t := r.s.teams[id]
		t.IsEliminated = true
		t.EliminatedAtRound = intPtr(round)
	}
	return nil
}

func (r *fakeTeamRepo) SetFinalRank(_ context.Context, _ repositories.SQLExecutor, teamID int, rank int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Team.SetFinalRank")
	t, ok := r.s.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.FinalRank = intPtr(rank)
	return nil
}

// ------------------------
// Fake Room Repository
// ------------------------

type fakeRoomRepo struct {
	s *fakeStore
}

func (r *fakeRoomRepo) CreateRooms(_ context.Context, _ repositories.SQLExecutor, rooms []*models.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Room.CreateRooms")
	for _, room := range rooms {
		for _, existing := range r.s.rooms {
			if existing.TournamentID == room.TournamentID && existing.Round == room.Round && existing.Number == room.Number {
				return repositories.ErrRoomRoundExists
			}
		}
	}
	for _, room := range rooms {
		r.s.nextRoomID++
		room.ID = r.s.nextRoomID
		c := cloneRoom(room)
		r.s.rooms[room.ID] = &c
	}
	return nil
}

func (r *fakeRoomRepo) get(id int) (*models.Room, error) {
	room, ok := r.s.rooms[id]
	if !ok {
		return nil, repositories.ErrRoomNotFound
	}
	c := cloneRoom(room)
	return &c, nil
}

func (r *fakeRoomRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Room.GetByID")
	return r.get(id)
}

func (r *fakeRoomRepo) GetForUpdate(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Room.GetForUpdate")
	return r.get(id)
}

func (r *fakeRoomRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Room.ListByTournament")
	out := make([]*models.Room, 0)
	for _, room := range r.s.rooms {
		if room.TournamentID == tournamentID {
			c := cloneRoom(room)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (r *fakeRoomRepo) CountOpenInRound(_ context.Context, _ repositories.SQLExecutor, tournamentID, round int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Room.CountOpenInRound")
	count := 0
	for _, room := range r.s.rooms {
		if room.TournamentID == tournamentID && room.Round == round && room.Status != models.RoomStatusCompleted {
			count++
		}
	}
	return count, nil
}

func (r *fakeRoomRepo) Start(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Room.Start")
	room, ok := r.s.rooms[id]
	if !ok || room.Status != models.RoomStatusPending {
		return repositories.ErrRoomNotPending
	}
	room.Status = models.RoomStatusLive
	return nil
}

func (r *fakeRoomRepo) Complete(_ context.Context, _ repositories.SQLExecutor, id int, winnerTeamID int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Room.Complete")
	room := r.s.rooms[id]
	if room.Status == models.RoomStatusCompleted {
		return repositories.ErrRoomAlreadyCompleted
	}
	room.Status = models.RoomStatusCompleted
	room.WinnerTeamID = intPtr(winnerTeamID)
	room.CompletedAt = &at
	return nil
}

// ------------------------
// Fake Registration Repository
// ------------------------

type fakeRegistrationRepo struct {
	s *fakeStore
}

func (r *fakeRegistrationRepo) ListPaidByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Registration.ListPaidByTournament")
	out := make([]*models.Registration, 0)
	for _, reg := range r.s.registrations {
		if reg.TournamentID == tournamentID && reg.PaymentStatus == models.PaymentCompleted {
			c := *reg
			out = append(out, &c)
		}
	}
	return out, nil
}

// ------------------------
// Fake Wallet Repository
// ------------------------

type fakeWalletRepo struct {
	s *fakeStore

	// InsertIdempotentFunc, when set, runs before the default insert; a non-nil error aborts it.
	InsertIdempotentFunc func(tx *models.WalletTransaction) error
}

func (s *fakeStore) hasTx(tournamentID, userID int, reason string) bool {
	for _, tx := range s.wallet {
		if tx.TournamentID != nil && *tx.TournamentID == tournamentID && tx.UserID == userID && tx.Reason != nil && *tx.Reason == reason {
			return true
		}
	}
	return false
}

func (r *fakeWalletRepo) ListByUser(_ context.Context, userID int) ([]models.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Wallet.ListByUser")
	out := make([]models.WalletTransaction, 0)
	for _, tx := range r.s.wallet {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *fakeWalletRepo) Exists(_ context.Context, _ repositories.SQLExecutor, tournamentID, userID int, reason string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Wallet.Exists")
	return r.s.hasTx(tournamentID, userID, reason), nil
}

func (r *fakeWalletRepo) InsertIdempotent(_ context.Context, _ repositories.SQLExecutor, tx *models.WalletTransaction) (bool, error) {
	if r.InsertIdempotentFunc != nil {
		if err := r.InsertIdempotentFunc(tx); err != nil {
			return false, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("Wallet.InsertIdempotent")
	if tx.Reason != nil && tx.TournamentID != nil && r.s.hasTx(*tx.TournamentID, tx.UserID, *tx.Reason) {
		return false, nil
	}
	tx.ID = r.s.nextTxID
	r.s.nextTxID++
	r.s.wallet = append(r.s.wallet, *tx)
	return true, nil
}

// ------------------------
// Fake User Repository
// ------------------------

type fakeUserRepo struct {
	s *fakeStore
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// ------------------------
// Collaborator fakes
// ------------------------

type publishedEvent struct {
	TournamentID int
	Type         string
	Payload      interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(tournamentID int, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{TournamentID: tournamentID, Type: eventType, Payload: payload})
}

func (p *fakePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type prizeCall struct {
	Op           string
	TournamentID int
	FinaleTeams  int
}

type fakePrizes struct {
	mu    sync.Mutex
	calls []prizeCall

	DistributePrizesFunc func(ctx context.Context, tournamentID int) error
}

func (f *fakePrizes) Calls() []prizeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]prizeCall(nil), f.calls...)
}

func (f *fakePrizes) RecalculatePrizePool(_ context.Context, tournamentID int, finaleTeams int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prizeCall{Op: "recalculate", TournamentID: tournamentID, FinaleTeams: finaleTeams})
	return nil
}

func (f *fakePrizes) DistributePrizes(ctx context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	f.calls = append(f.calls, prizeCall{Op: "distribute", TournamentID: tournamentID})
	f.mu.Unlock()
	if f.DistributePrizesFunc != nil {
		return f.DistributePrizesFunc(ctx, tournamentID)
	}
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []CancellationNotice
}

func (f *fakeNotifier) TournamentAutoCancelled(_ context.Context, notice CancellationNotice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
}

type fakeArchiver struct {
	mu       sync.Mutex
	receipts []storage.RefundReceipt
	err      error
}

func (f *fakeArchiver) Archive(_ context.Context, receipt storage.RefundReceipt) (*storage.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts = append(f.receipts, receipt)
	return &storage.UploadResult{Key: storage.ReceiptKey(receipt.TournamentID, receipt.ProcessedAt)}, nil
}

type sentMail struct {
	To      []string
	Subject string
	Body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendEmail(to []string, subject string, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}
