package domain

// ReportIntelligence groups collected intelligence for the terminal report.
type ReportIntelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Report is the terminal summary emitted when a session closes.
type Report struct {
	SessionID              string             `json:"sessionId"`
	ScamDetected           bool               `json:"scamDetected"`
	TotalMessagesExchanged int                `json:"totalMessagesExchanged"`
	ExtractedIntelligence  ReportIntelligence `json:"extractedIntelligence"`
	AgentNotes             string             `json:"agentNotes"`
}
