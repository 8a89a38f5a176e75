package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/goContacts/internal/users"
	"github.com/MrEthical07/goContacts/token"
)

type refreshOutcome struct {
	pair TokenPair
	err  error
}

func raceRefresh(svc *Service, refreshToken string, workers int) []refreshOutcome {
	out := make([]refreshOutcome, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			pair, err := svc.Refresh(context.Background(), refreshToken)
			out[i] = refreshOutcome{pair: pair, err: err}
		}(i)
	}
	close(start)
	wg.Wait()
	return out
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	h := newHarness(t, withoutRevokeOnReuse())
	h.registerConfirmed(t, "alice", "alice@example.com", "secret1")

	pair, err := h.svc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	const workers = 16
	var winner TokenPair
	wins := 0
	for _, o := range raceRefresh(h.svc, pair.RefreshToken, workers) {
		switch {
		case o.err == nil:
			wins++
			winner = o.pair
		case errors.Is(o.err, ErrRevoked):
		default:
			t.Fatalf("unexpected error: %v", o.err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful refresh, got %d", wins)
	}

	stored, err := h.dir.RefreshToken(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored != TokenDigest(winner.RefreshToken) {
		t.Fatal("stored digest must belong to the winning refresh")
	}
}

func TestConcurrentRefreshWithRevocationLeavesNoValidToken(t *testing.T) {
	h := newHarness(t)
	h.registerConfirmed(t, "alice", "alice@example.com", "secret1")

	pair, err := h.svc.Login(context.Background(), "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	wins := 0
	var winner TokenPair
	for _, o := range raceRefresh(h.svc, pair.RefreshToken, 16) {
		if o.err == nil {
			wins++
			winner = o.pair
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful refresh, got %d", wins)
	}

	// Every loser observed the rotation and then cleared the stored digest.
	if _, err := h.svc.Refresh(context.Background(), winner.RefreshToken); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected the winning token to be revoked by reuse, got %v", err)
	}
}

func TestConcurrentRefreshOverPostgresCAS(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	h := newHarnessWithDirectory(t, users.NewPostgresDirectory(db), withoutRevokeOnReuse())
	refresh, err := h.codec.Encode("alice@example.com", token.PurposeRefresh, DefaultConfig().RefreshTTL)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	const workers = 8
	q := `(?s)UPDATE\s+users\s+SET\s+refresh_token_hash\s*=\s*\$3\s+WHERE\s+email\s*=\s*\$1\s+AND\s+refresh_token_hash\s*=\s*\$2`
	mock.ExpectExec(q).
		WithArgs("alice@example.com", TokenDigest(refresh), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 1; i < workers; i++ {
		mock.ExpectExec(q).
			WithArgs("alice@example.com", TokenDigest(refresh), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	wins, revoked := 0, 0
	for _, o := range raceRefresh(h.svc, refresh, workers) {
		switch {
		case o.err == nil:
			wins++
		case errors.Is(o.err, ErrRevoked):
			revoked++
		default:
			t.Fatalf("unexpected error: %v", o.err)
		}
	}
	if wins != 1 || revoked != workers-1 {
		t.Fatalf("expected 1 winner and %d revoked, got %d and %d", workers-1, wins, revoked)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
