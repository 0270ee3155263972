// Package report builds the terminal summary of an engagement and delivers
// it to an external collector off the reply path.
package report

import (
	"fmt"
	"strings"

	"github.com/ashureev/honeytrap/internal/domain"
)

// highConfidence is the session confidence above which the notes call the
// detection out.
const highConfidence = 0.8

// Build summarizes s.
func Build(s *domain.Session) domain.Report {
	in := s.Intelligence
	r := domain.Report{
		SessionID:              s.ID,
		ScamDetected:           s.ScamDetected,
		TotalMessagesExchanged: s.TotalMessages,
		ExtractedIntelligence: domain.ReportIntelligence{
			BankAccounts:       collected(in, domain.EntityBankAccount),
			UPIIDs:             collected(in, domain.EntityPaymentHandle),
			PhishingLinks:      collected(in, domain.EntityURL),
			PhoneNumbers:       collected(in, domain.EntityPhone),
			SuspiciousKeywords: append([]string{}, in.SuspiciousKeywords...),
		},
	}
	r.AgentNotes = notes(s, r.ExtractedIntelligence)
	return r
}

// collected lists the values of type t as first captured.
func collected(in domain.Intelligence, t domain.EntityType) []string {
	out := []string{}
	for _, it := range in.Items {
		if it.Type != t {
			continue
		}
		v := it.Raw
		if v == "" {
			v = it.Value
		}
		out = append(out, v)
	}
	return out
}

func notes(s *domain.Session, in domain.ReportIntelligence) string {
	var n []string
	if s.FraudType != domain.FraudNone {
		n = append(n, "Scam type: "+string(s.FraudType))
	}
	if len(in.SuspiciousKeywords) > 0 {
		n = append(n, "Tactics used: "+strings.Join(in.SuspiciousKeywords, ", "))
	}
	if s.MaxConfidence > highConfidence {
		n = append(n, "High confidence scam detection")
	}
	if c := len(in.UPIIDs); c > 0 {
		n = append(n, fmt.Sprintf("UPI IDs collected: %d", c))
	}
	if c := len(in.PhoneNumbers); c > 0 {
		n = append(n, fmt.Sprintf("Phone numbers collected: %d", c))
	}
	if c := len(in.PhishingLinks); c > 0 {
		n = append(n, fmt.Sprintf("Phishing links detected: %d", c))
	}
	n = append(n, fmt.Sprintf("Total engagement: %d messages", s.TotalMessages))
	return strings.Join(n, ". ")
}
