package domain

import "time"

// TurnRecord summarizes one completed turn for the transcript log and the
// metrics tracker.
type TurnRecord struct {
	SessionID     string        `json:"session_id"`
	Inbound       Message       `json:"inbound"`
	Outbound      Message       `json:"outbound"`
	Phase         Phase         `json:"phase"`
	PreviousPhase Phase         `json:"previous_phase"`
	Confidence    float64       `json:"confidence"`
	MaxConfidence float64       `json:"max_confidence"`
	ScamDetected  bool          `json:"scam_detected"`
	FraudType     FraudType     `json:"fraud_type,omitempty"`
	Branch        string        `json:"branch"`
	NewItems      int           `json:"new_items"`
	Violations    int           `json:"violations"`
	FellBack      bool          `json:"fell_back"`
	Ended         bool          `json:"ended"`
	TurnCount     int           `json:"turn_count"`
	Engagement    time.Duration `json:"engagement"`
	Intelligence  Intelligence  `json:"-"`
	Latency       time.Duration `json:"latency"`
}
