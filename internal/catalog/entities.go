package catalog

import (
	"regexp"
	"strings"

	"github.com/ashureev/honeytrap/internal/domain"
)

// EntityPattern describes how one kind of intelligence is found in a message.
type EntityPattern struct {
	ID             string
	Type           domain.EntityType
	Re             *regexp.Regexp
	BaseConfidence float64
	// RequiredKeywords gate the match: at least one must appear in the message.
	RequiredKeywords []string
	// Validate, if set, receives the raw match and the lower-cased message.
	Validate func(raw, lowerMessage string) bool
}

var paymentProviders = strings.Join([]string{
	"upi", "paytm", "ybl", "okaxis", "okhdfcbank", "okicici", "oksbi", "apl", "axisb", "axl",
	"barodampay", "citibank", "citi", "dbs", "dlb", "federal", "freecharge", "hdfcbank", "hsbc",
	"icici", "idbi", "idfcfirst", "ikwik", "imobile", "indus", "iob", "jio", "jupiteraxis",
	"kotak", "kvb", "mahb", "obc", "payzapp", "pnb", "pockets", "postbank", "rbl", "sbi", "scbl",
	"slicepay", "syndicate", "tjsb", "ubi", "uboi", "uco", "united", "waaxis", "wahdfcbank",
	"waicici", "wasbi", "yesbankltd", "yesbank",
}, "|")

var consumerMailDomains = []string{"gmail", "yahoo", "hotmail", "outlook", "rediff", "live", "icloud", "proton"}

// EntityPatterns are applied in order; later duplicates merge into earlier keys.
var EntityPatterns = []EntityPattern{
	{
		ID:             "payment_handle.provider",
		Type:           domain.EntityPaymentHandle,
		Re:             regexp.MustCompile(`(?i)[a-z0-9._-]+@(?:` + paymentProviders + `)\b`),
		BaseConfidence: 0.92,
	},
	{
		ID:             "payment_handle.deep_link",
		Type:           domain.EntityPaymentHandle,
		Re:             regexp.MustCompile(`(?i)upi://pay\?\S+`),
		BaseConfidence: 0.95,
	},
	{
		ID:             "payment_handle.generic",
		Type:           domain.EntityPaymentHandle,
		Re:             regexp.MustCompile(`(?i)[a-z0-9._-]+@[a-z0-9]+`),
		BaseConfidence: 0.75,
		Validate:       notConsumerMail,
	},
	{
		ID:             "phone.national",
		Type:           domain.EntityPhone,
		Re:             regexp.MustCompile(`(?:\+91[\s.-]?|\b)[6-9]\d{9}\b`),
		BaseConfidence: 0.88,
		Validate: func(raw, _ string) bool {
			n := countDigits(raw)
			return n == 10 || n == 12
		},
	},
	{
		ID:             "phone.spaced",
		Type:           domain.EntityPhone,
		Re:             regexp.MustCompile(`\b[6-9]\d{4}[\s.-]?\d{5}\b`),
		BaseConfidence: 0.85,
	},
	{
		ID:               "bank_account.digits",
		Type:             domain.EntityBankAccount,
		Re:               regexp.MustCompile(`\b\d{9,18}\b`),
		BaseConfidence:   0.65,
		RequiredKeywords: []string{"account", "bank", "number", "a/c", "ac no", "acc", "saving", "current", "transfer to"},
		Validate: func(_, lower string) bool {
			for _, term := range []string{"account", "bank", "a/c", "transfer", "deposit", "saving", "current"} {
				if strings.Contains(lower, term) {
					return true
				}
			}
			return false
		},
	},
	{
		ID:             "routing_code.ifsc",
		Type:           domain.EntityRoutingCode,
		Re:             regexp.MustCompile(`(?i)\b[a-z]{4}0[a-z0-9]{6}\b`),
		BaseConfidence: 0.95,
	},
	{
		ID:             "url.http",
		Type:           domain.EntityURL,
		Re:             regexp.MustCompile("(?i)https?://[^\\s<>\"{}|\\\\^`\\[\\]]+"),
		BaseConfidence: 0.80,
	},
	{
		ID:             "url.shortener",
		Type:           domain.EntityURL,
		Re:             regexp.MustCompile(`(?i)\b(?:bit\.ly|tinyurl\.com|goo\.gl|t\.co|ow\.ly|is\.gd|buff\.ly|cutt\.ly|rb\.gy|shorturl\.at)/[a-z0-9]+`),
		BaseConfidence: 0.90,
	},
	{
		ID:             "url.suspicious_tld",
		Type:           domain.EntityURL,
		Re:             regexp.MustCompile(`(?i)(?:https?://)?\b[a-z0-9][a-z0-9-]*\.(?:tk|ml|ga|cf|gq|xyz|top|work|click|link|info)\b[^\s]*`),
		BaseConfidence: 0.85,
	},
	{
		ID:             "crypto.btc",
		Type:           domain.EntityCrypto,
		Re:             regexp.MustCompile(`\b(?:[13][a-km-zA-HJ-NP-Z1-9]{25,34}|bc1[a-zA-HJ-NP-Z0-9]{39,59})\b`),
		BaseConfidence: 0.92,
	},
	{
		ID:             "crypto.eth",
		Type:           domain.EntityCrypto,
		Re:             regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`),
		BaseConfidence: 0.92,
	},
	{
		ID:             "tax_id.pan",
		Type:           domain.EntityTaxID,
		Re:             regexp.MustCompile(`(?i)\b[a-z]{5}[0-9]{4}[a-z]\b`),
		BaseConfidence: 0.90,
	},
	{
		ID:               "biometric_id.aadhaar",
		Type:             domain.EntityBiometricID,
		Re:               regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
		BaseConfidence:   0.70,
		RequiredKeywords: []string{"aadhaar", "aadhar", "uid", "verify", "link"},
	},
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func notConsumerMail(raw, _ string) bool {
	at := strings.LastIndexByte(raw, '@')
	if at < 0 {
		return false
	}
	host := strings.ToLower(raw[at+1:])
	for _, d := range consumerMailDomains {
		if strings.HasPrefix(host, d) {
			return false
		}
	}
	return true
}

// NamePatterns capture a personal name in group 1.
var NamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:my name is|\bi am|\bi'm|\bthis is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
	regexp.MustCompile(`(?i:call me|\bcontact)\s+([A-Z][a-z]+)`),
	regexp.MustCompile(`\b(?i:mrs|mr|ms|shri|smt)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
	regexp.MustCompile(`(?i:speaking with)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
}

// NameStoplist holds honorifics that are never names.
var NameStoplist = map[string]bool{
	"Sir": true, "Madam": true, "Customer": true, "User": true, "Member": true, "Dear": true,
}

// OrganizationPatterns capture an organization name in group 1.
var OrganizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?i:from|with|at|of)\s+([A-Z][a-zA-Z &]*?(?:Bank|Ltd|Inc|Pvt|Private|Limited|LLC|Corp|Company|Foundation|Trust|Insurance))\b`),
	regexp.MustCompile(`\b([A-Z][a-zA-Z]+)\s+(?:Bank|Customer Care|Support|Helpline)\b`),
	regexp.MustCompile(`(?i:we're from|we are from|i represent|calling from)\s+([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)`),
}

// Target maps message vocabulary onto the entity types it makes relevant.
type Target struct {
	Re    *regexp.Regexp
	Types []domain.EntityType
}

// Targets are evaluated in order.
var Targets = []Target{
	{regexp.MustCompile(`(?i)\bupi\b|gpay|phonepe|paytm|\bbhim\b|payment`), []domain.EntityType{domain.EntityPaymentHandle}},
	{regexp.MustCompile(`(?i)\bbank|account|transfer|\bifsc\b`), []domain.EntityType{domain.EntityBankAccount, domain.EntityRoutingCode}},
	{regexp.MustCompile(`(?i)\blink\b|\burl\b|click|website|visit`), []domain.EntityType{domain.EntityURL}},
	{regexp.MustCompile(`(?i)\bcall\b|contact|number|whatsapp`), []domain.EntityType{domain.EntityPhone}},
	{regexp.MustCompile(`(?i)\bname\b|\bwho\b|calling from`), []domain.EntityType{domain.EntityName}},
	{regexp.MustCompile(`(?i)company|organi[sz]ation|business|bank name`), []domain.EntityType{domain.EntityOrganization}},
}

// Message context flags.
var (
	PaymentLanguage     = regexp.MustCompile(`(?i)payment|transfer|\bsend\b|\bpay\b|\bupi\b`)
	ContactRequest      = regexp.MustCompile(`(?i)\bcall\b|\breach\b|contact|whatsapp`)
	LinkMention         = regexp.MustCompile(`(?i)http|www|bit\.ly|click`)
	NameReference       = regexp.MustCompile(`(?i)\bname\b|\bcalled\b|\bi am\b|\bthis is\b`)
	OrganizationMention = regexp.MustCompile(`(?i)company|organi[sz]ation|\bbank\b|\bwe\b`)
	CredentialRequest   = regexp.MustCompile(`(?i)\botp\b|password|\bpin\b|\bcvv\b`)
	VerificationRequest = regexp.MustCompile(`(?i)verify|update|confirm|\bkyc\b`)
)
