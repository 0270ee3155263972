package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashureev/honeytrap/internal/domain"
	"github.com/ashureev/honeytrap/internal/store"
)

var tracer = otel.Tracer("github.com/ashureev/honeytrap/internal/pipeline")

// ReportSink accepts closing reports without blocking.
type ReportSink interface {
	Enqueue(r domain.Report) (string, error)
}

// TurnObserver is notified after every committed turn.
type TurnObserver interface {
	ObserveTurn(rec domain.TurnRecord)
}

// Request is one counterpart message addressed to a session.
type Request struct {
	SessionID string
	Sender    string
	Text      string
	Timestamp time.Time
	History   []domain.Message
	Metadata  domain.Metadata
	Hint      *float64
	Terminate bool
}

// Service hosts the Engine: it serializes turns per session, persists the
// result and fans completed turns out to reports and observers.
type Service struct {
	engine    *Engine
	repo      store.Repository
	reports   ReportSink
	observers []TurnObserver
	locks     *keyedMutex
	logger    *slog.Logger
}

// NewService creates a Service. reports may be nil when no collector is configured.
func NewService(engine *Engine, repo store.Repository, reports ReportSink, logger *slog.Logger, observers ...TurnObserver) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:    engine,
		repo:      repo,
		reports:   reports,
		observers: observers,
		locks:     newKeyedMutex(),
		logger:    logger,
	}
}

// Handle processes req and returns only the reply text.
func (s *Service) Handle(ctx context.Context, req Request) (string, error) {
	out, err := s.Process(ctx, req)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Process runs one turn for req.SessionID and commits it. Errors are either
// an *InputError or wrap ErrInternal.
func (s *Service) Process(ctx context.Context, req Request) (Outcome, error) {
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		return Outcome{}, &InputError{Field: "sessionId", Reason: "required"}
	}

	ctx, span := tracer.Start(ctx, "pipeline.turn",
		trace.WithAttributes(
			attribute.String("session_id", id),
			attribute.Int("message.length", len(req.Text)),
		))
	defer span.End()

	start := time.Now()
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return Outcome{}, s.fail(span, id, fmt.Errorf("%w: load session: %w", ErrInternal, err))
	}
	isNew := sess == nil
	if isNew {
		sess = domain.NewSession(id, req.Metadata, start)
	}

	out, err := s.engine.Turn(sess, Incoming{
		Sender:    req.Sender,
		Text:      req.Text,
		Timestamp: req.Timestamp,
		History:   req.History,
		Hint:      req.Hint,
		Terminate: req.Terminate,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			span.SetStatus(codes.Error, "invalid input")
			return Outcome{}, err
		}
		return Outcome{}, s.fail(span, id, err)
	}

	if isNew {
		err = s.repo.CreateSession(ctx, out.Session)
	} else {
		err = s.repo.UpdateSession(ctx, out.Session)
	}
	if err != nil {
		return Outcome{}, s.fail(span, id, fmt.Errorf("%w: save session: %w", ErrInternal, err))
	}

	if out.Report != nil {
		s.dispatch(ctx, out)
	}

	latency := time.Since(start)
	rec := out.Record(latency)
	for _, o := range s.observers {
		o.ObserveTurn(rec)
	}

	span.SetAttributes(
		attribute.String("phase", string(out.Session.Phase)),
		attribute.Float64("confidence", out.Classification.Confidence),
		attribute.String("branch", string(out.Branch)),
		attribute.Bool("scam_detected", out.Session.ScamDetected),
		attribute.Bool("ended", out.Session.Ended),
	)
	s.logger.Info("turn processed",
		"session_id", id,
		"phase", out.Session.Phase,
		"confidence", out.Classification.Confidence,
		"branch", out.Branch,
		"new_items", out.NewItems,
		"fell_back", out.FellBack,
		"latency_ms", latency.Milliseconds(),
	)
	return out, nil
}

// LockSession blocks until no turn runs for id and returns the unlock.
func (s *Service) LockSession(id string) func() {
	return s.locks.Lock(id)
}

// dispatch hands the closing report to the sink. Delivery problems are
// logged and never fail the turn.
func (s *Service) dispatch(ctx context.Context, out Outcome) {
	if s.reports == nil {
		return
	}
	reportID, err := s.reports.Enqueue(*out.Report)
	if err != nil {
		s.logger.Warn("failed to enqueue report", "session_id", out.Session.ID, "error", err)
		return
	}
	out.Session.ReportSent = true
	if err := s.repo.UpdateSession(ctx, out.Session); err != nil {
		s.logger.Warn("failed to mark report sent", "session_id", out.Session.ID, "report_id", reportID, "error", err)
	}
}

func (s *Service) fail(span trace.Span, id string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "turn failed")
	s.logger.Error("turn failed", "session_id", id, "error", err)
	return err
}
