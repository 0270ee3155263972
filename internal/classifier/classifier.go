// Package classifier scores a counterpart message for fraud likelihood.
package classifier

import (
	"strings"

	"github.com/ashureev/honeytrap/internal/catalog"
	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
)

// Classifier combines rule, keyword, behavioral and context scores.
// It is safe for concurrent use.
type Classifier struct {
	cfg config.ClassifierTuning
}

// New creates a classifier with the given tuning.
func New(cfg config.ClassifierTuning) *Classifier {
	return &Classifier{cfg: cfg}
}

// scoring accumulates per-call state.
type scoring struct {
	result    domain.ClassificationResult
	seen      map[domain.RiskFactor]bool
	catWeight map[domain.Category]float64
	catOrder  []domain.Category
}

func (s *scoring) addRisk(f domain.RiskFactor) {
	if s.seen[f] {
		return
	}
	s.seen[f] = true
	s.result.RiskFactors = append(s.result.RiskFactors, f)
}

// Classify scores text against the counterpart's prior messages. A non-nil hint
// raises the confidence to at least the hinted value.
func (c *Classifier) Classify(text string, history []string, hint *float64) domain.ClassificationResult {
	s := &scoring{
		result:    domain.ClassificationResult{Urgency: domain.UrgencyNormal},
		seen:      make(map[domain.RiskFactor]bool),
		catWeight: make(map[domain.Category]float64),
	}

	msg := catalog.Normalize(text)
	lower := strings.ToLower(msg)
	prior := make([]string, 0, len(history))
	for _, h := range history {
		prior = append(prior, catalog.Normalize(h))
	}

	rule := c.ruleScore(s, msg, prior)
	keyword := c.keywordScore(s, lower)
	behavioral := c.behavioralScore(s, msg, prior)
	context := c.contextScore(s, msg)

	total := c.cfg.RuleWeight*rule +
		c.cfg.KeywordWeight*keyword +
		c.cfg.BehavioralWeight*behavioral +
		c.cfg.ContextWeight*context
	if len(s.result.RiskFactors) >= c.cfg.RiskFactorMin {
		total *= c.cfg.RiskFactorBoost
	}
	if hint != nil && *hint > total {
		total = *hint
	}

	r := s.result
	r.Confidence = clamp01(total)
	r.IsScam = r.Confidence >= c.cfg.Threshold
	r.FraudType = s.fraudType()
	r.HasFinancialContext = catalog.MatchAny(catalog.FinancialContextPatterns, msg)
	r.HasDirectRequest = catalog.MatchAny(catalog.DirectRequestPatterns, msg)
	r.Urgency = urgency(msg)
	return r
}

func (c *Classifier) ruleScore(s *scoring, msg string, prior []string) float64 {
	var score float64
	boosting := false
	for _, p := range catalog.CategoryPatterns {
		m := p.Re.FindString(msg)
		if m == "" {
			continue
		}
		score += p.Weight
		s.result.Indicators = append(s.result.Indicators, domain.Indicator{
			PatternID: p.ID,
			Category:  p.Category,
			Weight:    p.Weight,
			Matched:   m,
		})
		if _, ok := s.catWeight[p.Category]; !ok {
			s.catOrder = append(s.catOrder, p.Category)
		}
		s.catWeight[p.Category] += p.Weight
		s.addRisk(domain.RiskFactor(p.Category))
		if p.UrgencyBoost {
			boosting = true
		}
	}

	for _, h := range prior {
		for _, p := range catalog.CategoryPatterns {
			if p.Re.MatchString(h) {
				score += c.cfg.HistoryWeight * p.Weight
			}
		}
	}

	if boosting && score > c.cfg.UrgencyFloor {
		score *= c.cfg.UrgencyMultiplier
	}
	return clamp01(score)
}

func (c *Classifier) keywordScore(s *scoring, lower string) float64 {
	var score float64
	for _, k := range catalog.HighRiskKeywords {
		if k.Match(lower) {
			score += c.cfg.HighRiskStep
			s.addRisk(domain.RiskHighRiskKeyword)
		}
	}
	for _, k := range catalog.MediumRiskKeywords {
		if k.Match(lower) {
			score += c.cfg.MediumRiskStep
		}
	}
	return clamp01(score)
}

func (c *Classifier) behavioralScore(s *scoring, msg string, prior []string) float64 {
	var score float64

	// Rapid escalation: early in a conversation, several prior messages already
	// steering toward money.
	if n := len(prior); n > 0 && n <= c.cfg.EscalationWindow {
		hits := 0
		for _, h := range prior {
			lh := strings.ToLower(h)
			for _, k := range catalog.FinancialTopicKeywords {
				if k.Match(lh) {
					hits++
					break
				}
			}
		}
		if hits >= c.cfg.EscalationHits {
			score += c.cfg.EscalationStep
			s.addRisk(domain.RiskQuickEscalation)
		}
	}

	for _, p := range catalog.ManipulationPhrases {
		if p.Re.MatchString(msg) {
			score += c.cfg.ManipulationStep
			s.addRisk(domain.RiskManipulation)
		}
	}
	for _, p := range catalog.PressurePhrases {
		if p.Re.MatchString(msg) {
			score += c.cfg.PressureStep
			s.addRisk(domain.RiskPressure)
		}
	}
	return clamp01(score)
}

func (c *Classifier) contextScore(s *scoring, msg string) float64 {
	var score float64
	for _, p := range catalog.InstitutionalPhrases {
		if p.Re.MatchString(msg) {
			score += c.cfg.ContextStep
			s.addRisk(domain.RiskScamContext)
		}
	}
	return clamp01(score)
}

// fraudType picks the category with the greatest summed weight. Ties keep the
// category matched first.
func (s *scoring) fraudType() domain.FraudType {
	var best domain.Category
	bestWeight := 0.0
	for _, cat := range s.catOrder {
		if w := s.catWeight[cat]; w > bestWeight+1e-9 {
			best, bestWeight = cat, w
		}
	}
	return best.FraudType()
}

func urgency(msg string) domain.Urgency {
	for _, u := range catalog.UrgencyLevels {
		if u.Re.MatchString(msg) {
			return u.Level
		}
	}
	return domain.UrgencyNormal
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
