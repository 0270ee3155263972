package housekeeping

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
	"github.com/ashureev/honeytrap/internal/pipeline"
	"github.com/ashureev/honeytrap/internal/store"
)

type sink struct {
	mu      sync.Mutex
	reports []domain.Report
}

func (s *sink) Enqueue(r domain.Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return "rid", nil
}

// lockedStore fails the first deletes of every session with a busy error.
type lockedStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	failures int
	attempts map[string]int
}

func (l *lockedStore) DeleteSession(ctx context.Context, id string) error {
	l.mu.Lock()
	l.attempts[id]++
	n := l.attempts[id]
	l.mu.Unlock()
	if n <= l.failures {
		return errors.New("database is locked")
	}
	return l.MemoryStore.DeleteSession(ctx, id)
}

// turnAfterList runs a turn between listing idle sessions and returning them.
type turnAfterList struct {
	store.Repository
	afterList func()
}

func (s *turnAfterList) ListIdleSessions(ctx context.Context, idle time.Duration) ([]*domain.Session, error) {
	out, err := s.Repository.ListIdleSessions(ctx, idle)
	if s.afterList != nil {
		s.afterList()
	}
	return out, err
}

func seed(t *testing.T, repo store.Repository, id string, lastActivity time.Time, scam, sent bool) {
	t.Helper()
	s := domain.NewSession(id, domain.Metadata{}, lastActivity.Add(-time.Minute))
	s.LastActivity = lastActivity
	s.ScamDetected = scam
	s.ReportSent = sent
	s.TotalMessages = 6
	require.NoError(t, repo.CreateSession(context.Background(), s))
}

func TestSweepReclaimsIdleSessions(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	now := time.Now()
	seed(t, repo, "idle-scam", now.Add(-2*time.Hour), true, false)
	seed(t, repo, "idle-sent", now.Add(-2*time.Hour), true, true)
	seed(t, repo, "idle-benign", now.Add(-time.Hour), false, false)
	seed(t, repo, "active", now, true, false)

	reports := &sink{}
	var reclaimed []string
	w := New(repo, reports, nil, Config{Idle: 30 * time.Minute}, func(id string) {
		reclaimed = append(reclaimed, id)
	}, nil)

	assert.Equal(t, 3, w.Sweep(ctx))
	assert.ElementsMatch(t, []string{"idle-scam", "idle-sent", "idle-benign"}, reclaimed)

	require.Len(t, reports.reports, 1)
	assert.Equal(t, "idle-scam", reports.reports[0].SessionID)
	assert.Equal(t, 6, reports.reports[0].TotalMessagesExchanged)

	for _, id := range reclaimed {
		got, err := repo.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got, id)
	}
	got, err := repo.GetSession(ctx, "active")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSweepKeepsSessionRefreshedAfterListing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seed(t, mem, "racing", time.Now().Add(-2*time.Hour), true, false)

	engine := pipeline.NewEngine(config.DefaultTuning(), rand.New(rand.NewPCG(1, 2)))
	svc := pipeline.NewService(engine, mem, nil, nil)
	repo := &turnAfterList{Repository: mem, afterList: func() {
		_, err := svc.Process(ctx, pipeline.Request{
			SessionID: "racing",
			Sender:    domain.SenderCounterpart,
			Text:      "Call 9876543210 now",
			Timestamp: time.Now(),
		})
		require.NoError(t, err)
	}}

	reports := &sink{}
	var reclaimed []string
	w := New(repo, reports, svc, Config{Idle: 30 * time.Minute}, func(id string) {
		reclaimed = append(reclaimed, id)
	}, nil)

	assert.Equal(t, 0, w.Sweep(ctx))
	assert.Empty(t, reclaimed)
	assert.Empty(t, reports.reports)

	got, err := mem.GetSession(ctx, "racing")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Messages, 2)
	assert.False(t, got.ReportSent)
	assert.WithinDuration(t, time.Now(), got.LastActivity, time.Minute)
}

func TestSweepSkipsSessionDeletedAfterListing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seed(t, mem, "gone", time.Now().Add(-time.Hour), true, false)
	repo := &turnAfterList{Repository: mem, afterList: func() {
		require.NoError(t, mem.DeleteSession(ctx, "gone"))
	}}

	reports := &sink{}
	w := New(repo, reports, nil, Config{Idle: time.Minute}, nil, nil)
	assert.Equal(t, 0, w.Sweep(ctx))
	assert.Empty(t, reports.reports)
}

func TestSweepRetriesBusyDeletes(t *testing.T) {
	ctx := context.Background()
	repo := &lockedStore{MemoryStore: store.NewMemory(), failures: 2, attempts: map[string]int{}}
	seed(t, repo, "busy", time.Now().Add(-time.Hour), false, false)

	w := New(repo, nil, nil, Config{Idle: time.Minute, MaxRetries: 3, RetryDelay: time.Millisecond}, nil, nil)
	assert.Equal(t, 1, w.Sweep(ctx))
	assert.Equal(t, 3, repo.attempts["busy"])
}

func TestSweepGivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	repo := &lockedStore{MemoryStore: store.NewMemory(), failures: 5, attempts: map[string]int{}}
	seed(t, repo, "stuck", time.Now().Add(-time.Hour), false, false)

	w := New(repo, nil, nil, Config{Idle: time.Minute, MaxRetries: 2, RetryDelay: time.Millisecond}, nil, nil)
	assert.Equal(t, 0, w.Sweep(ctx))
	assert.Equal(t, 2, repo.attempts["stuck"])
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := store.NewMemory()
	seed(t, repo, "old", time.Now().Add(-time.Hour), false, false)

	ctx, cancel := context.WithCancel(context.Background())
	reclaimed := make(chan string, 1)
	w := New(repo, nil, nil, Config{Interval: 10 * time.Millisecond, Idle: time.Minute}, func(id string) {
		select {
		case reclaimed <- id:
		default:
		}
	}, nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case id := <-reclaimed:
		assert.Equal(t, "old", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sweep")
	}
	cancel()
	require.NoError(t, <-done)
}
