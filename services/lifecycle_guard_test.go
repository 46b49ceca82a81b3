package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dosada05/room-bracket/metrics"
	"github.com/Dosada05/room-bracket/models"
	"github.com/Dosada05/room-bracket/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const grace = 60 * time.Minute

type guardFixture struct {
	store    *fakeStore
	wallet   *fakeWalletRepo
	notifier *fakeNotifier
	archiver *fakeArchiver
	guard    *LifecycleGuard
}

func newGuardFixture(t *testing.T, policy GuardPolicy) *guardFixture {
	t.Helper()
	store := newFakeStore()
	wallet := &fakeWalletRepo{s: store}
	notifier := &fakeNotifier{}
	archiver := &fakeArchiver{}
	guard := NewLifecycleGuard(nil,
		&fakeTournamentRepo{s: store},
		&fakeRegistrationRepo{s: store},
		wallet, notifier, archiver, metrics.New(), discardLogger(), policy,
	)
	refs := 0
	guard.newReference = func() string {
		refs++
		return fmt.Sprintf("ref-%d", refs)
	}
	return &guardFixture{store: store, wallet: wallet, notifier: notifier, archiver: archiver, guard: guard}
}

// stalledFor adds a tournament that entered completed without a winner `age` ago,
// with three paying registrants (users 1001..1003).
func (f *guardFixture) stalledFor(id int, age time.Duration) {
	f.store.addTournament(&models.Tournament{
		ID:              id,
		Name:            "Night Cup",
		OrganizerID:     7,
		Status:          models.StatusCompleted,
		StatusChangedAt: testNow.Add(-age),
		EntryFee:        decimal.NewFromInt(25),
	})
	f.store.addTeams(id, 1, 3, decimal.RequireFromString("25.00"))
}

func failFor(userID int) func(tx *models.WalletTransaction) error {
	return func(tx *models.WalletTransaction) error {
		if tx.UserID == userID {
			return errors.New("connection reset by peer")
		}
		return nil
	}
}

func TestIsStalled(t *testing.T) {
	declared := testNow.Add(-2 * time.Hour)
	tests := []struct {
		name       string
		tournament *models.Tournament
		want       bool
	}{
		{
			name:       "past the grace period",
			tournament: &models.Tournament{Status: models.StatusCompleted, StatusChangedAt: testNow.Add(-65 * time.Minute)},
			want:       true,
		},
		{
			name:       "exactly at the grace period",
			tournament: &models.Tournament{Status: models.StatusCompleted, StatusChangedAt: testNow.Add(-grace)},
			want:       true,
		},
		{
			name:       "one minute short",
			tournament: &models.Tournament{Status: models.StatusCompleted, StatusChangedAt: testNow.Add(-59 * time.Minute)},
			want:       false,
		},
		{
			name:       "winner declared",
			tournament: &models.Tournament{Status: models.StatusCompleted, StatusChangedAt: testNow.Add(-3 * time.Hour), WinnerDeclaredAt: &declared},
			want:       false,
		},
		{
			name:       "still live",
			tournament: &models.Tournament{Status: models.StatusLive, StatusChangedAt: testNow.Add(-3 * time.Hour)},
			want:       false,
		},
		{
			name:       "already cancelled",
			tournament: &models.Tournament{Status: models.StatusCancelled, StatusChangedAt: testNow.Add(-3 * time.Hour)},
			want:       false,
		},
		{name: "nil", tournament: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStalled(tt.tournament, testNow, grace))
		})
	}
}

func TestLifecycleGuard_Sweep_CancelsAndRefunds(t *testing.T) {
	ctx := context.Background()
	f := newGuardFixture(t, DefaultGuardPolicy())
	f.stalledFor(1, 65*time.Minute)

	cancelled, err := f.guard.Sweep(ctx, testNow, grace)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, CancelledTournament{
		TournamentID: 1,
		Name:         "Night Cup",
		OrganizerID:  7,
		Registrants:  3,
		Refunded:     3,
	}, cancelled[0])

	stored := f.store.tournament(1)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, testNow, stored.StatusChangedAt)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, models.ReasonAutoCancel, *stored.CancelReason)

	refunds := f.store.walletFor(1, models.ReasonAutoCancel)
	require.Len(t, refunds, 3)
	for _, tx := range refunds {
		assert.Equal(t, models.TxRefund, tx.Type)
		assert.Equal(t, models.TxStatusCompleted, tx.Status)
		assert.True(t, decimal.RequireFromString("25").Equal(tx.Amount))
		assert.Equal(t, "Refund: Night Cup (winner not declared in time)", tx.Description)
		assert.NotEmpty(t, tx.Reference)
	}

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, 3, f.notifier.notices[0].Refunded)
	require.Len(t, f.archiver.receipts, 1)
	assert.True(t, f.archiver.receipts[0].Cancelled)
	assert.Len(t, f.archiver.receipts[0].Lines, 3)

	t.Run("second sweep changes nothing", func(t *testing.T) {
		cancelled, err := f.guard.Sweep(ctx, testNow.Add(10*time.Minute), grace)
		require.NoError(t, err)
		assert.Empty(t, cancelled)
		assert.Len(t, f.store.walletFor(1, models.ReasonAutoCancel), 3)
		assert.Len(t, f.notifier.notices, 1)
	})
}

func TestLifecycleGuard_Sweep_Boundaries(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(f *guardFixture)
		wantCancel bool
	}{
		{
			name:       "59 minutes is too early",
			prepare:    func(f *guardFixture) { f.stalledFor(1, 59*time.Minute) },
			wantCancel: false,
		},
		{
			name:       "exactly the grace period",
			prepare:    func(f *guardFixture) { f.stalledFor(1, grace) },
			wantCancel: true,
		},
		{
			name: "winner declared",
			prepare: func(f *guardFixture) {
				f.stalledFor(1, 3*time.Hour)
				declared := testNow.Add(-3 * time.Hour)
				f.store.tournaments[1].WinnerDeclaredAt = &declared
			},
			wantCancel: false,
		},
		{
			name: "live tournament",
			prepare: func(f *guardFixture) {
				f.stalledFor(1, 3*time.Hour)
				f.store.tournaments[1].Status = models.StatusLive
			},
			wantCancel: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGuardFixture(t, DefaultGuardPolicy())
			tt.prepare(f)
			before := f.store.tournament(1).Status

			cancelled, err := f.guard.Sweep(context.Background(), testNow, grace)
			require.NoError(t, err)

			if tt.wantCancel {
				assert.Len(t, cancelled, 1)
				assert.Equal(t, models.StatusCancelled, f.store.tournament(1).Status)
				assert.Len(t, f.store.walletFor(1, models.ReasonAutoCancel), 3)
				return
			}
			assert.Empty(t, cancelled)
			assert.Equal(t, before, f.store.tournament(1).Status)
			assert.Empty(t, f.store.walletFor(1, models.ReasonAutoCancel))
			assert.Empty(t, f.notifier.notices)
		})
	}
}

func TestLifecycleGuard_Sweep_RefundsWhatWasPaid(t *testing.T) {
	f := newGuardFixture(t, DefaultGuardPolicy())
	f.stalledFor(1, 2*time.Hour)
	// Бесплатная регистрация возврата не получает.
	f.store.registrations[0].AmountPaid = decimal.Zero
	f.store.registrations[1].AmountPaid = decimal.RequireFromString("12.50")

	cancelled, err := f.guard.Sweep(context.Background(), testNow, grace)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, 3, cancelled[0].Registrants)
	assert.Equal(t, 2, cancelled[0].Refunded)

	refunds := f.store.walletFor(1, models.ReasonAutoCancel)
	require.Len(t, refunds, 2)
	assert.Equal(t, 1002, refunds[0].UserID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(refunds[0].Amount))

	lines := f.archiver.receipts[0].Lines
	assert.Equal(t, refundStatusFree, lines[0].Status)
	assert.Equal(t, refundStatusIssued, lines[1].Status)
}

func TestLifecycleGuard_Sweep_SkipsExistingRefund(t *testing.T) {
	m := metrics.New()
	f := newGuardFixture(t, DefaultGuardPolicy())
	f.guard.metrics = m
	f.stalledFor(1, 2*time.Hour)
	f.store.wallet = append(f.store.wallet, models.WalletTransaction{
		ID:           900,
		UserID:       1001,
		TournamentID: intPtr(1),
		Type:         models.TxRefund,
		Amount:       decimal.NewFromInt(25),
		Status:       models.TxStatusCompleted,
		Reason:       stringPtr(models.ReasonAutoCancel),
	})

	cancelled, err := f.guard.Sweep(context.Background(), testNow, grace)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, 2, cancelled[0].Refunded)
	assert.Equal(t, 1, cancelled[0].Skipped)
	assert.Len(t, f.store.walletFor(1, models.ReasonAutoCancel), 3)

	expected := `
# HELP room_bracket_lifecycle_refunds_skipped_total Refunds skipped because one was already issued.
# TYPE room_bracket_lifecycle_refunds_skipped_total counter
room_bracket_lifecycle_refunds_skipped_total 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "room_bracket_lifecycle_refunds_skipped_total"))
}

func TestLifecycleGuard_Sweep_PartialRefundFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel anyway and retry the failed refund", func(t *testing.T) {
		f := newGuardFixture(t, GuardPolicy{CancelOnPartialRefund: true})
		f.stalledFor(1, 2*time.Hour)
		f.wallet.InsertIdempotentFunc = failFor(1002)

		cancelled, err := f.guard.Sweep(ctx, testNow, grace)
		require.NoError(t, err)
		require.Len(t, cancelled, 1)
		assert.Equal(t, 2, cancelled[0].Refunded)
		assert.Equal(t, 1, cancelled[0].Failed)
		assert.Equal(t, models.StatusCancelled, f.store.tournament(1).Status)
		assert.Len(t, f.store.walletFor(1, models.ReasonAutoCancel), 2)

		f.wallet.InsertIdempotentFunc = nil
		cancelled, err = f.guard.Sweep(ctx, testNow.Add(5*time.Minute), grace)
		require.NoError(t, err)
		assert.Empty(t, cancelled)

		refunds := f.store.walletFor(1, models.ReasonAutoCancel)
		require.Len(t, refunds, 3)
		assert.Equal(t, 1002, refunds[2].UserID)
		assert.Len(t, f.notifier.notices, 1)
		require.Len(t, f.archiver.receipts, 2)
		assert.True(t, f.archiver.receipts[1].Cancelled)

		// Больше повторять нечего.
		_, err = f.guard.Sweep(ctx, testNow.Add(10*time.Minute), grace)
		require.NoError(t, err)
		assert.Len(t, f.archiver.receipts, 2)
	})

	t.Run("keep completed until every refund went through", func(t *testing.T) {
		f := newGuardFixture(t, GuardPolicy{CancelOnPartialRefund: false})
		f.stalledFor(1, 2*time.Hour)
		f.wallet.InsertIdempotentFunc = failFor(1002)

		cancelled, err := f.guard.Sweep(ctx, testNow, grace)
		require.NoError(t, err)
		assert.Empty(t, cancelled)
		assert.Equal(t, models.StatusCompleted, f.store.tournament(1).Status)
		assert.Len(t, f.store.walletFor(1, models.ReasonAutoCancel), 2)
		assert.Empty(t, f.notifier.notices)
		require.Len(t, f.archiver.receipts, 1)
		assert.False(t, f.archiver.receipts[0].Cancelled)

		f.wallet.InsertIdempotentFunc = nil
		cancelled, err = f.guard.Sweep(ctx, testNow.Add(5*time.Minute), grace)
		require.NoError(t, err)
		require.Len(t, cancelled, 1)
		assert.Equal(t, 1, cancelled[0].Refunded)
		assert.Equal(t, 2, cancelled[0].Skipped)
		assert.Equal(t, models.StatusCancelled, f.store.tournament(1).Status)
		assert.Len(t, f.store.walletFor(1, models.ReasonAutoCancel), 3)
		assert.Len(t, f.notifier.notices, 1)
	})
}

func TestLifecycleGuard_Sweep_ContinuesAfterListError(t *testing.T) {
	f := newGuardFixture(t, DefaultGuardPolicy())
	f.guard.tournamentRepo = &fakeTournamentRepo{
		s: f.store,
		ListStalledFunc: func(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error) {
			return nil, errors.New("db down")
		},
	}

	_, err := f.guard.Sweep(context.Background(), testNow, grace)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestLifecycleGuard_Sweep_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newGuardFixture(t, DefaultGuardPolicy())
	f.archiver.err = errors.New("bucket unavailable")
	f.stalledFor(1, 2*time.Hour)

	cancelled, err := f.guard.Sweep(context.Background(), testNow, grace)
	require.NoError(t, err)
	assert.Len(t, cancelled, 1)
	assert.Equal(t, models.StatusCancelled, f.store.tournament(1).Status)
}

type fakeSweeper struct {
	calls []time.Time
	err   error
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time, grace time.Duration) ([]CancelledTournament, error) {
	f.calls = append(f.calls, now)
	if f.err != nil {
		return nil, f.err
	}
	return []CancelledTournament{{TournamentID: 1}}, nil
}

func TestSweepScheduler_RunOnce(t *testing.T) {
	sweeper := &fakeSweeper{}
	sched, err := NewSweepScheduler(sweeper, time.Minute, grace, discardLogger())
	require.NoError(t, err)
	sched.now = func() time.Time { return testNow }

	cancelled, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, cancelled, 1)
	assert.Equal(t, []time.Time{testNow}, sweeper.calls)

	sweeper.err = errors.New("boom")
	_, err = sched.RunOnce(context.Background())
	require.Error(t, err)

	require.NoError(t, sched.Shutdown())
}

var _ ReceiptArchiver = (*storage.ReceiptArchiver)(nil)

func TestLifecycleGuard_ConcurrentSweeps(t *testing.T) {
	ctx := context.Background()
	f := newGuardFixture(t, DefaultGuardPolicy())
	var mu sync.Mutex
	f.guard.inTx = serialTx(&mu, f.store)
	var refs atomic.Int64
	f.guard.newReference = func() string {
		return fmt.Sprintf("ref-%d", refs.Add(1))
	}
	f.stalledFor(1, 2*grace)
	f.stalledFor(2, 3*grace)

	const sweepers = 4
	results := make([][]CancelledTournament, sweepers)
	errs := make([]error, sweepers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < sweepers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.guard.Sweep(ctx, testNow, grace)
		}(i)
	}
	close(start)
	wg.Wait()

	cancelledBy := make(map[int]int)
	for i := range results {
		require.NoError(t, errs[i])
		for _, c := range results[i] {
			cancelledBy[c.TournamentID]++
		}
	}
	assert.Equal(t, map[int]int{1: 1, 2: 1}, cancelledBy)

	for _, tc := range []struct {
		tournamentID int
		users        []int
	}{
		{tournamentID: 1, users: []int{1001, 1002, 1003}},
		{tournamentID: 2, users: []int{1001, 1002, 1003}},
	} {
		refunds := f.store.walletFor(tc.tournamentID, models.ReasonAutoCancel)
		got := make([]int, 0, len(refunds))
		for _, tx := range refunds {
			got = append(got, tx.UserID)
		}
		assert.ElementsMatch(t, tc.users, got, "tournament %d", tc.tournamentID)
		assert.Equal(t, models.StatusCancelled, f.store.tournament(tc.tournamentID).Status)
	}

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	notified := make(map[int]int)
	for _, n := range f.notifier.notices {
		notified[n.Tournament.ID]++
	}
	assert.Equal(t, map[int]int{1: 1, 2: 1}, notified)
}
