package domain

// RiskFactor names a distinct signal family that contributed to a classification.
// Category names double as risk factors.
type RiskFactor string

// Non-category risk factors.
const (
	RiskHighRiskKeyword RiskFactor = "high_risk_keyword"
	RiskQuickEscalation RiskFactor = "quick_escalation"
	RiskManipulation    RiskFactor = "manipulation"
	RiskPressure        RiskFactor = "pressure_tactics"
	RiskScamContext     RiskFactor = "scam_context"
)

// Indicator is one matched category pattern.
type Indicator struct {
	PatternID string   `json:"pattern_id"`
	Category  Category `json:"category"`
	Weight    float64  `json:"weight"`
	Matched   string   `json:"matched"`
}

// ClassificationResult is the classifier output for one message.
type ClassificationResult struct {
	IsScam              bool         `json:"is_scam"`
	Confidence          float64      `json:"confidence"`
	Indicators          []Indicator  `json:"indicators"`
	RiskFactors         []RiskFactor `json:"risk_factors"`
	FraudType           FraudType    `json:"fraud_type,omitempty"`
	HasFinancialContext bool         `json:"has_financial_context"`
	HasDirectRequest    bool         `json:"has_direct_request"`
	Urgency             Urgency      `json:"urgency"`
}

// HasRiskFactor reports whether f was recorded.
func (r ClassificationResult) HasRiskFactor(f RiskFactor) bool {
	for _, got := range r.RiskFactors {
		if got == f {
			return true
		}
	}
	return false
}

// ExtractionItem is one harvested intelligence token.
type ExtractionItem struct {
	Type       EntityType `json:"type"`
	Raw        string     `json:"raw"`
	Value      string     `json:"value"`
	Normalized string     `json:"normalized"`
	Confidence float64    `json:"confidence"`
	Validated  bool       `json:"validated"`
	Turn       int        `json:"turn"`
	Snippet    string     `json:"snippet"`
	Method     string     `json:"method"`
}

// MessageContext flags the vocabulary families present in a message.
type MessageContext struct {
	PaymentLanguage     bool `json:"payment_language"`
	ContactRequest      bool `json:"contact_request"`
	Link                bool `json:"link"`
	NameReference       bool `json:"name_reference"`
	Organization        bool `json:"organization"`
	CredentialRequest   bool `json:"credential_request"`
	VerificationRequest bool `json:"verification_request"`
}

// ExtractionResult is the extractor output for one message.
type ExtractionResult struct {
	Items   []ExtractionItem `json:"items"`
	Targets []EntityType     `json:"targets"`
	Context MessageContext   `json:"context"`
}

// First returns the first item of type t, if any.
func (r ExtractionResult) First(t EntityType) (ExtractionItem, bool) {
	for _, it := range r.Items {
		if it.Type == t {
			return it, true
		}
	}
	return ExtractionItem{}, false
}

// TransitionResult is the state controller output.
type TransitionResult struct {
	Next      Phase `json:"next"`
	ShouldEnd bool  `json:"should_end"`
}

// Severity grades forbidden reply content.
type Severity string

// Severities.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Action is what the safety filter does about a violation.
type Action string

// Actions.
const (
	ActionBlock   Action = "block"
	ActionReplace Action = "replace"
	ActionWarn    Action = "warn"
)

// Violation records one forbidden-content match.
type Violation struct {
	PatternID string   `json:"pattern_id"`
	Severity  Severity `json:"severity"`
	Matched   string   `json:"matched"`
	Action    Action   `json:"action"`
}

// ValidationResult is the safety filter output.
type ValidationResult struct {
	Valid       bool        `json:"is_valid"`
	Cleaned     string      `json:"cleaned_response"`
	Violations  []Violation `json:"violations"`
	LengthValid bool        `json:"length_valid"`
}
