package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ashureev/honeytrap/internal/domain"
	"gopkg.in/yaml.v3"
)

// TuningVersion is the tuning schema version this build understands.
const TuningVersion = "v1"

// Tuning is the versioned engine configuration passed to each pipeline component.
type Tuning struct {
	Version    string           `yaml:"version"`
	Input      InputTuning      `yaml:"input"`
	Classifier ClassifierTuning `yaml:"classifier"`
	Extractor  ExtractorTuning  `yaml:"extractor"`
	State      StateTuning      `yaml:"state"`
	Strategy   StrategyTuning   `yaml:"strategy"`
	Safety     SafetyTuning     `yaml:"safety"`
}

// InputTuning bounds inbound messages.
type InputTuning struct {
	MaxMessageRunes int `yaml:"max_message_runes"`
}

// ClassifierTuning holds scoring weights and thresholds.
type ClassifierTuning struct {
	Threshold         float64 `yaml:"threshold"`
	RuleWeight        float64 `yaml:"rule_weight"`
	KeywordWeight     float64 `yaml:"keyword_weight"`
	BehavioralWeight  float64 `yaml:"behavioral_weight"`
	ContextWeight     float64 `yaml:"context_weight"`
	HistoryWeight     float64 `yaml:"history_weight"`
	UrgencyMultiplier float64 `yaml:"urgency_multiplier"`
	UrgencyFloor      float64 `yaml:"urgency_floor"`
	RiskFactorMin     int     `yaml:"risk_factor_min"`
	RiskFactorBoost   float64 `yaml:"risk_factor_boost"`
	HighRiskStep      float64 `yaml:"high_risk_step"`
	MediumRiskStep    float64 `yaml:"medium_risk_step"`
	EscalationStep    float64 `yaml:"escalation_step"`
	EscalationWindow  int     `yaml:"escalation_window"`
	EscalationHits    int     `yaml:"escalation_hits"`
	ManipulationStep  float64 `yaml:"manipulation_step"`
	PressureStep      float64 `yaml:"pressure_step"`
	ContextStep       float64 `yaml:"context_step"`
}

// ExtractorTuning holds extraction confidences.
type ExtractorTuning struct {
	ContextBoost      float64 `yaml:"context_boost"`
	MultiContextBoost float64 `yaml:"multi_context_boost"`
	NameConfidence    float64 `yaml:"name_confidence"`
	OrgConfidence     float64 `yaml:"org_confidence"`
	SnippetWindow     int     `yaml:"snippet_window"`
}

// StateTuning holds phase advancement bounds.
type StateTuning struct {
	MaxTurns             int     `yaml:"max_turns"`
	DelayBound           int     `yaml:"delay_bound"`
	RapportTurns         int     `yaml:"rapport_turns"`
	RapportConfidence    float64 `yaml:"rapport_confidence"`
	FinancialConfidence  float64 `yaml:"financial_confidence"`
	RequestConfidence    float64 `yaml:"request_confidence"`
	ExtractionConfidence float64 `yaml:"extraction_confidence"`
}

// StrategyTuning holds persona and reply-variation parameters.
type StrategyTuning struct {
	MoodConfidence    float64 `yaml:"mood_confidence"`
	EngageConfidence  float64 `yaml:"engage_confidence"`
	TrustPenalty      float64 `yaml:"trust_penalty"`
	TrustReward       float64 `yaml:"trust_reward"`
	FillerProbability float64 `yaml:"filler_probability"`
	TagProbability    float64 `yaml:"tag_probability"`
	RecentReplies     int     `yaml:"recent_replies"`
}

// LengthBounds is an inclusive character-length envelope.
type LengthBounds struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// SafetyTuning holds per-phase length envelopes and the fallback bound.
type SafetyTuning struct {
	Lengths         map[domain.Phase]LengthBounds `yaml:"lengths"`
	MaxConsecutive  int                           `yaml:"max_consecutive_fallbacks"`
	DefaultPhaseKey domain.Phase                  `yaml:"default_phase"`
}

// Bounds returns the envelope for phase, falling back to the default phase.
func (s SafetyTuning) Bounds(phase domain.Phase) LengthBounds {
	if b, ok := s.Lengths[phase]; ok {
		return b
	}
	return s.Lengths[s.DefaultPhaseKey]
}

// DefaultTuning returns the stock engine configuration.
func DefaultTuning() Tuning {
	return Tuning{
		Version: TuningVersion,
		Input:   InputTuning{MaxMessageRunes: 4096},
		Classifier: ClassifierTuning{
			Threshold:         0.60,
			RuleWeight:        0.50,
			KeywordWeight:     0.25,
			BehavioralWeight:  0.15,
			ContextWeight:     0.10,
			HistoryWeight:     0.4,
			UrgencyMultiplier: 1.4,
			UrgencyFloor:      0.25,
			RiskFactorMin:     3,
			RiskFactorBoost:   1.2,
			HighRiskStep:      0.12,
			MediumRiskStep:    0.06,
			EscalationStep:    0.18,
			EscalationWindow:  5,
			EscalationHits:    2,
			ManipulationStep:  0.08,
			PressureStep:      0.10,
			ContextStep:       0.12,
		},
		Extractor: ExtractorTuning{
			ContextBoost:      0.08,
			MultiContextBoost: 0.05,
			NameConfidence:    0.75,
			OrgConfidence:     0.70,
			SnippetWindow:     40,
		},
		State: StateTuning{
			MaxTurns:             40,
			DelayBound:           2,
			RapportTurns:         3,
			RapportConfidence:    0.3,
			FinancialConfidence:  0.4,
			RequestConfidence:    0.6,
			ExtractionConfidence: 0.75,
		},
		Strategy: StrategyTuning{
			MoodConfidence:    0.7,
			EngageConfidence:  0.4,
			TrustPenalty:      0.1,
			TrustReward:       0.05,
			FillerProbability: 0.3,
			TagProbability:    0.2,
			RecentReplies:     10,
		},
		Safety: SafetyTuning{
			Lengths: map[domain.Phase]LengthBounds{
				domain.PhaseInitial:          {Min: 20, Max: 100},
				domain.PhaseGreeting:         {Min: 30, Max: 150},
				domain.PhaseBuildingRapport:  {Min: 30, Max: 150},
				domain.PhaseFinancialContext: {Min: 40, Max: 180},
				domain.PhaseRequest:          {Min: 30, Max: 200},
				domain.PhaseExtraction:       {Min: 25, Max: 250},
				domain.PhaseSuspicious:       {Min: 20, Max: 120},
				domain.PhaseClosing:          {Min: 30, Max: 150},
			},
			MaxConsecutive:  3,
			DefaultPhaseKey: domain.PhaseGreeting,
		},
	}
}

// LoadTuning overlays the YAML file at path onto DefaultTuning.
// An empty path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

// Validate checks that every tuning value is usable.
func (t Tuning) Validate() error {
	if t.Version != TuningVersion {
		return fmt.Errorf("unsupported tuning version %q", t.Version)
	}

	c := t.Classifier
	unit := map[string]float64{
		"classifier.threshold":          c.Threshold,
		"classifier.rule_weight":        c.RuleWeight,
		"classifier.keyword_weight":     c.KeywordWeight,
		"classifier.behavioral_weight":  c.BehavioralWeight,
		"classifier.context_weight":     c.ContextWeight,
		"classifier.history_weight":     c.HistoryWeight,
		"classifier.urgency_floor":      c.UrgencyFloor,
		"classifier.high_risk_step":     c.HighRiskStep,
		"classifier.medium_risk_step":   c.MediumRiskStep,
		"classifier.escalation_step":    c.EscalationStep,
		"classifier.manipulation_step":  c.ManipulationStep,
		"classifier.pressure_step":      c.PressureStep,
		"classifier.context_step":       c.ContextStep,
		"extractor.context_boost":       t.Extractor.ContextBoost,
		"extractor.multi_context_boost": t.Extractor.MultiContextBoost,
		"extractor.name_confidence":     t.Extractor.NameConfidence,
		"extractor.org_confidence":      t.Extractor.OrgConfidence,
		"state.rapport_confidence":      t.State.RapportConfidence,
		"state.financial_confidence":    t.State.FinancialConfidence,
		"state.request_confidence":      t.State.RequestConfidence,
		"state.extraction_confidence":   t.State.ExtractionConfidence,
		"strategy.mood_confidence":      t.Strategy.MoodConfidence,
		"strategy.engage_confidence":    t.Strategy.EngageConfidence,
		"strategy.trust_penalty":        t.Strategy.TrustPenalty,
		"strategy.trust_reward":         t.Strategy.TrustReward,
		"strategy.filler_probability":   t.Strategy.FillerProbability,
		"strategy.tag_probability":      t.Strategy.TagProbability,
	}
	var errs []error
	for name, v := range unit {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	if c.UrgencyMultiplier < 1 || c.RiskFactorBoost < 1 {
		errs = append(errs, errors.New("classifier multipliers must be >= 1"))
	}
	if c.RiskFactorMin <= 0 || c.EscalationWindow <= 0 || c.EscalationHits <= 0 {
		errs = append(errs, errors.New("classifier counts must be > 0"))
	}
	if t.Input.MaxMessageRunes <= 0 {
		errs = append(errs, errors.New("input.max_message_runes must be > 0"))
	}
	if t.Extractor.SnippetWindow < 0 {
		errs = append(errs, errors.New("extractor.snippet_window must be >= 0"))
	}
	if t.State.MaxTurns <= 0 || t.State.DelayBound < 0 || t.State.RapportTurns < 0 {
		errs = append(errs, errors.New("state counts must be non-negative and max_turns > 0"))
	}
	if t.Strategy.RecentReplies <= 0 {
		errs = append(errs, errors.New("strategy.recent_replies must be > 0"))
	}
	if t.Safety.MaxConsecutive <= 0 {
		errs = append(errs, errors.New("safety.max_consecutive_fallbacks must be > 0"))
	}
	if _, ok := t.Safety.Lengths[t.Safety.DefaultPhaseKey]; !ok {
		errs = append(errs, fmt.Errorf("safety.lengths missing default phase %s", t.Safety.DefaultPhaseKey))
	}
	for phase, b := range t.Safety.Lengths {
		if !phase.Valid() {
			errs = append(errs, fmt.Errorf("safety.lengths has unknown phase %q", phase))
			continue
		}
		if b.Min <= 0 || b.Min > b.Max {
			errs = append(errs, fmt.Errorf("safety.lengths[%s] needs 0 < min <= max, got %d..%d", phase, b.Min, b.Max))
		}
	}
	return errors.Join(errs...)
}
