package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ashureev/honeytrap/internal/domain"
)

// ReportIDHeader carries a unique id per delivery attempt series.
const ReportIDHeader = "X-Report-ID"

var (
	// ErrRejected is returned when the collector answers with a non-2xx status.
	ErrRejected = errors.New("report rejected")

	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// Deliverer sends one report to an external collector.
type Deliverer interface {
	Deliver(ctx context.Context, id string, r domain.Report) error
}

// HTTPDeliverer POSTs reports as JSON.
type HTTPDeliverer struct {
	url    string
	client *http.Client
}

// NewHTTPDeliverer creates a deliverer posting to url with the given
// per-request timeout.
func NewHTTPDeliverer(url string, timeout time.Duration) *HTTPDeliverer {
	return &HTTPDeliverer{url: url, client: &http.Client{Timeout: timeout}}
}

// Deliver posts r.
func (d *HTTPDeliverer) Deliver(ctx context.Context, id string, r domain.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ReportIDHeader, id)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

// GRPCDeliverer sends reports as a google.protobuf.Struct over a unary call.
type GRPCDeliverer struct {
	conn   *grpc.ClientConn
	method string
	logger *slog.Logger
}

// GRPCConfig holds connection settings for GRPCDeliverer.
type GRPCConfig struct {
	Address          string
	Method           string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// NewGRPCDeliverer connects to the collector. A collector that is not ready
// within the connect timeout is logged and the connection keeps retrying in
// the background.
func NewGRPCDeliverer(cfg GRPCConfig, logger *slog.Logger) (*GRPCDeliverer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = 2 * time.Minute
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = 10 * time.Second
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	)
	if err != nil {
		return nil, fmt.Errorf("create report client for %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		logger.Warn("Report collector not ready, deliveries will retry",
			"address", cfg.Address,
			"timeout", cfg.ConnectTimeout,
			"error", err)
	} else {
		logger.Info("Connected to report collector", "address", cfg.Address, "method", cfg.Method)
	}
	return &GRPCDeliverer{conn: conn, method: cfg.Method, logger: logger}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Deliver invokes the configured method with r encoded as a Struct.
func (d *GRPCDeliverer) Deliver(ctx context.Context, id string, r domain.Report) error {
	payload, err := toStruct(r)
	if err != nil {
		return err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "x-report-id", id)
	if err := d.conn.Invoke(ctx, d.method, payload, &emptypb.Empty{}); err != nil {
		return fmt.Errorf("invoke %s: %w", d.method, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (d *GRPCDeliverer) Close() {
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

func toStruct(r domain.Report) (*structpb.Struct, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode report fields: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build report struct: %w", err)
	}
	return s, nil
}

// Fanout delivers to every target, succeeding only if all succeed. Targets
// that accepted a report id are skipped when the same id is retried.
type Fanout struct {
	targets []Deliverer

	mu   sync.Mutex
	done map[string][]bool
}

// NewFanout creates a Fanout over targets.
func NewFanout(targets ...Deliverer) *Fanout {
	return &Fanout{targets: targets, done: make(map[string][]bool)}
}

// Add appends a target.
func (f *Fanout) Add(d Deliverer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, d)
}

// Len returns the number of targets.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.targets)
}

// Deliver sends r to each target that has not yet accepted id.
func (f *Fanout) Deliver(ctx context.Context, id string, r domain.Report) error {
	f.mu.Lock()
	targets := f.targets
	done, ok := f.done[id]
	if ok && len(done) == len(targets) {
		done = append([]bool(nil), done...)
	} else {
		done = make([]bool, len(targets))
	}
	f.mu.Unlock()

	var errs []error
	for i, d := range targets {
		if done[i] {
			continue
		}
		if err := d.Deliver(ctx, id, r); err != nil {
			errs = append(errs, err)
			continue
		}
		done[i] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(errs) == 0 {
		delete(f.done, id)
		return nil
	}
	f.done[id] = done
	return errors.Join(errs...)
}

// Forget drops the delivery progress kept for id.
func (f *Fanout) Forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.done, id)
}

// LogDeliverer writes reports to the log instead of a collector.
type LogDeliverer struct {
	Logger *slog.Logger
}

// Deliver logs r.
func (d LogDeliverer) Deliver(_ context.Context, id string, r domain.Report) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Report generated",
		"report_id", id,
		"session_id", r.SessionID,
		"scam_detected", r.ScamDetected,
		"total_messages", r.TotalMessagesExchanged,
		"notes", r.AgentNotes,
	)
	return nil
}

// NewID returns a fresh report id.
func NewID() string {
	return uuid.NewString()
}
