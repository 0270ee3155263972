package domain

import (
	"fmt"
	"strings"
)

// FraudType is the classifier's label for a scheme category.
type FraudType string

// Fraud types. FraudNone means no category matched.
const (
	FraudNone          FraudType = ""
	FraudBank          FraudType = "bank_fraud"
	FraudOTP           FraudType = "otp_fraud"
	FraudKYC           FraudType = "kyc_scam"
	FraudLottery       FraudType = "lottery_scam"
	FraudRomance       FraudType = "romance_scam"
	FraudJob           FraudType = "job_scam"
	FraudImpersonation FraudType = "impersonation_scam"
	FraudUrgent        FraudType = "urgent_scam"
	FraudThreat        FraudType = "threat_scam"
	FraudLoan          FraudType = "loan_scam"
	FraudPhishing      FraudType = "phishing_scam"
)

// Category is a weighted signal category in the catalog.
type Category string

// Signal categories.
const (
	CategoryUrgency      Category = "urgency"
	CategoryAuthority    Category = "authority"
	CategoryFinancial    Category = "financial"
	CategoryVerification Category = "verification"
	CategoryCredential   Category = "credential"
	CategoryThreat       Category = "threat"
	CategoryPrize        Category = "prize"
	CategoryEmployment   Category = "employment"
	CategoryLoan         Category = "loan"
	CategoryRomance      Category = "romance"
	CategoryContact      Category = "contact"
)

// FraudType maps a category onto its fraud label.
func (c Category) FraudType() FraudType {
	switch c {
	case CategoryFinancial:
		return FraudBank
	case CategoryCredential:
		return FraudOTP
	case CategoryVerification:
		return FraudKYC
	case CategoryPrize:
		return FraudLottery
	case CategoryRomance:
		return FraudRomance
	case CategoryEmployment:
		return FraudJob
	case CategoryAuthority:
		return FraudImpersonation
	case CategoryUrgency:
		return FraudUrgent
	case CategoryThreat:
		return FraudThreat
	case CategoryLoan:
		return FraudLoan
	case CategoryContact:
		return FraudPhishing
	default:
		return FraudNone
	}
}

// Urgency is an ordered urgency level: normal < low < medium < high < critical.
type Urgency int

// Urgency levels.
const (
	UrgencyNormal Urgency = iota
	UrgencyLow
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

var urgencyNames = [...]string{"normal", "low", "medium", "high", "critical"}

func (u Urgency) String() string {
	if u < UrgencyNormal || u > UrgencyCritical {
		return "normal"
	}
	return urgencyNames[u]
}

// MarshalText encodes the level by name.
func (u Urgency) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText decodes a level name.
func (u *Urgency) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for i, name := range urgencyNames {
		if name == s {
			*u = Urgency(i)
			return nil
		}
	}
	return fmt.Errorf("unknown urgency level %q", s)
}
