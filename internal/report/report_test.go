package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashureev/honeytrap/internal/domain"
)

func scamSession() *domain.Session {
	s := domain.NewSession("sess-9", domain.Metadata{}, time.Unix(0, 0))
	s.ScamDetected = true
	s.MaxConfidence = 0.92
	s.FraudType = domain.FraudBank
	s.TotalMessages = 12
	s.Intelligence.Merge(domain.ExtractionItem{Type: domain.EntityPaymentHandle, Value: "Fraud@YBL", Normalized: "fraud@ybl", Confidence: 0.9})
	s.Intelligence.Merge(domain.ExtractionItem{Type: domain.EntityPhone, Value: "+91 98765 43210", Normalized: "+919876543210", Confidence: 0.8})
	s.Intelligence.Merge(domain.ExtractionItem{Type: domain.EntityURL, Value: "http://sbi-kyc.top/x", Normalized: "http://sbi-kyc.top/x", Confidence: 0.7})
	s.Intelligence.AddKeyword("urgent")
	s.Intelligence.AddKeyword("blocked")
	return s
}

func TestBuild(t *testing.T) {
	r := Build(scamSession())

	assert.Equal(t, "sess-9", r.SessionID)
	assert.True(t, r.ScamDetected)
	assert.Equal(t, 12, r.TotalMessagesExchanged)
	assert.Equal(t, []string{"Fraud@YBL"}, r.ExtractedIntelligence.UPIIDs)
	assert.Equal(t, []string{"+91 98765 43210"}, r.ExtractedIntelligence.PhoneNumbers)
	assert.Equal(t, []string{"http://sbi-kyc.top/x"}, r.ExtractedIntelligence.PhishingLinks)
	assert.Equal(t, []string{}, r.ExtractedIntelligence.BankAccounts)
	assert.Equal(t, []string{"urgent", "blocked"}, r.ExtractedIntelligence.SuspiciousKeywords)
	assert.Equal(t,
		"Scam type: bank_fraud. Tactics used: urgent, blocked. High confidence scam detection. "+
			"UPI IDs collected: 1. Phone numbers collected: 1. Phishing links detected: 1. Total engagement: 12 messages",
		r.AgentNotes)
}

func TestBuildEmptySessionEncodesEmptyArrays(t *testing.T) {
	s := domain.NewSession("quiet", domain.Metadata{}, time.Unix(0, 0))
	r := Build(s)
	assert.Equal(t, "Total engagement: 0 messages", r.AgentNotes)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"bankAccounts":[]`)
	assert.Contains(t, string(raw), `"suspiciousKeywords":[]`)
}

func TestHTTPDeliverer(t *testing.T) {
	var gotID string
	var got domain.Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotID = r.Header.Get(ReportIDHeader)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewHTTPDeliverer(srv.URL, time.Second)
	want := Build(scamSession())
	require.NoError(t, d.Deliver(context.Background(), "rid-1", want))
	assert.Equal(t, "rid-1", gotID)
	assert.Equal(t, want, got)
}

func TestHTTPDelivererRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPDeliverer(srv.URL, time.Second).Deliver(context.Background(), "rid", domain.Report{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestToStruct(t *testing.T) {
	s, err := toStruct(Build(scamSession()))
	require.NoError(t, err)
	assert.Equal(t, "sess-9", s.Fields["sessionId"].GetStringValue())
	assert.True(t, s.Fields["scamDetected"].GetBoolValue())
	upi := s.Fields["extractedIntelligence"].GetStructValue().Fields["upiIds"].GetListValue().Values
	require.Len(t, upi, 1)
	assert.Equal(t, "Fraud@YBL", upi[0].GetStringValue())
}

type fakeDeliverer struct {
	mu      sync.Mutex
	fails   int
	calls   int
	ids     []string
	got     []domain.Report
	block   chan struct{}
	started chan struct{}
}

func (f *fakeDeliverer) Deliver(ctx context.Context, id string, r domain.Report) error {
	if f.block != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ids = append(f.ids, id)
	if f.calls <= f.fails {
		return errors.New("collector down")
	}
	f.got = append(f.got, r)
	return nil
}

func (f *fakeDeliverer) delivered() []domain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Report(nil), f.got...)
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &fakeDeliverer{}
	bad := &fakeDeliverer{fails: 1}
	err := NewFanout(ok, bad).Deliver(context.Background(), "x", domain.Report{SessionID: "s"})
	require.Error(t, err)
	assert.Len(t, ok.delivered(), 1)
	assert.NoError(t, NewFanout(ok).Deliver(context.Background(), "y", domain.Report{}))
}

func TestFanoutRetrySkipsAcceptedTargets(t *testing.T) {
	ok := &fakeDeliverer{}
	flaky := &fakeDeliverer{fails: 1}
	f := NewFanout(ok, flaky)
	ctx := context.Background()

	require.Error(t, f.Deliver(ctx, "x", domain.Report{SessionID: "s"}))
	require.NoError(t, f.Deliver(ctx, "x", domain.Report{SessionID: "s"}))
	assert.Equal(t, []string{"x"}, ok.ids)
	assert.Equal(t, []string{"x", "x"}, flaky.ids)
	assert.Empty(t, f.done)

	require.NoError(t, f.Deliver(ctx, "y", domain.Report{SessionID: "s"}))
	assert.Equal(t, []string{"x", "y"}, ok.ids)
}

func TestDispatcherFanoutDeliversOncePerTarget(t *testing.T) {
	defer goleak.VerifyNone(t)

	ok := &fakeDeliverer{}
	flaky := &fakeDeliverer{fails: 2}
	down := &fakeDeliverer{fails: 10}
	f := NewFanout(ok, flaky, down)
	d := NewDispatcher(f, DispatcherConfig{MaxRetries: 3, BaseDelay: time.Millisecond}, nil)
	id, err := d.Enqueue(domain.Report{SessionID: "a"})
	require.NoError(t, err)

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, []string{id}, ok.ids)
	assert.Equal(t, []string{id, id, id}, flaky.ids)
	assert.Len(t, down.ids, 3)
	assert.Empty(t, f.done)
}

func TestGRPCDelivererToleratesUnreadyCollector(t *testing.T) {
	d, err := NewGRPCDeliverer(GRPCConfig{
		Address:        "127.0.0.1:1",
		Method:         "/honeytrap.v1.Reports/Submit",
		ConnectTimeout: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.Error(t, d.Deliver(ctx, "id", domain.Report{SessionID: "s"}))
}

func TestLogDelivererNeverFails(t *testing.T) {
	assert.NoError(t, LogDeliverer{}.Deliver(context.Background(), "id", domain.Report{SessionID: "s"}))
}

func TestDispatcherRetriesWithSameID(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeDeliverer{fails: 2}
	d := NewDispatcher(f, DispatcherConfig{MaxRetries: 3, BaseDelay: time.Millisecond}, nil)
	id, err := d.Enqueue(domain.Report{SessionID: "a"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, d.Close(context.Background()))
	require.Len(t, f.delivered(), 1)
	assert.Equal(t, []string{id, id, id}, f.ids)
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeDeliverer{fails: 10}
	d := NewDispatcher(f, DispatcherConfig{MaxRetries: 2, BaseDelay: time.Millisecond}, nil)
	_, err := d.Enqueue(domain.Report{SessionID: "a"})
	require.NoError(t, err)
	require.NoError(t, d.Close(context.Background()))
	assert.Empty(t, f.delivered())
	assert.Equal(t, 2, f.calls)
}

func TestDispatcherDropsOldestWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeDeliverer{block: make(chan struct{}), started: make(chan struct{}, 1)}
	d := NewDispatcher(f, DispatcherConfig{QueueSize: 2, MaxRetries: 1}, nil)

	_, err := d.Enqueue(domain.Report{SessionID: "in-flight"})
	require.NoError(t, err)
	<-f.started

	for _, id := range []string{"old", "mid", "new"} {
		_, err := d.Enqueue(domain.Report{SessionID: id})
		require.NoError(t, err)
	}
	close(f.block)
	require.NoError(t, d.Close(context.Background()))

	var ids []string
	for _, r := range f.delivered() {
		ids = append(ids, r.SessionID)
	}
	assert.Equal(t, []string{"in-flight", "mid", "new"}, ids)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(&fakeDeliverer{}, DispatcherConfig{}, nil)
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))
	_, err := d.Enqueue(domain.Report{})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcherCloseHonorsDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	blocking := delivererFunc(func(ctx context.Context, _ string, _ domain.Report) error {
		calls.Add(1)
		<-ctx.Done()
		return ctx.Err()
	})
	d := NewDispatcher(blocking, DispatcherConfig{MaxRetries: 5, Timeout: time.Minute}, nil)
	_, err := d.Enqueue(domain.Report{SessionID: "stuck"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

type delivererFunc func(ctx context.Context, id string, r domain.Report) error

func (f delivererFunc) Deliver(ctx context.Context, id string, r domain.Report) error {
	return f(ctx, id, r)
}
