package catalog

import (
	"regexp"

	"github.com/ashureev/honeytrap/internal/domain"
)

// CategoryPattern is one weighted fraud-signal pattern.
type CategoryPattern struct {
	ID           string
	Category     domain.Category
	Weight       float64
	UrgencyBoost bool
	Re           *regexp.Regexp
}

func cp(id string, cat domain.Category, weight float64, boost bool, expr string) CategoryPattern {
	return CategoryPattern{ID: id, Category: cat, Weight: weight, UrgencyBoost: boost, Re: regexp.MustCompile("(?i)" + expr)}
}

// CategoryPatterns are scored against the current message and its history.
var CategoryPatterns = []CategoryPattern{
	cp("urgency.immediate", domain.CategoryUrgency, 0.18, true, `urgent|immediately|within \d+ (?:hours?|minutes?)|right now`),
	cp("urgency.act_now", domain.CategoryUrgency, 0.15, true, `act now|don'?t delay|time (?:is|was) running|last chance`),
	cp("urgency.final_notice", domain.CategoryUrgency, 0.16, true, `final (?:warning|notice)|action required|expire`),
	cp("urgency.limited", domain.CategoryUrgency, 0.14, true, `today only|limited time|hurry|\basap\b`),

	cp("authority.bank_official", domain.CategoryAuthority, 0.22, false, `bank (?:manager|official|officer|executive)|\brbi\b|reserve bank`),
	cp("authority.government", domain.CategoryAuthority, 0.20, false, `government|police|\bcourt\b|income tax|\bit department`),
	cp("authority.your_account", domain.CategoryAuthority, 0.18, true, `your (?:account|number|email|pan|aadhaar) (?:is|has been|will be)`),
	cp("authority.bank_name", domain.CategoryAuthority, 0.12, false, `\b(?:sbi|hdfc|icici|axis|kotak|pnb|bob|canara)\b`),
	cp("authority.support", domain.CategoryAuthority, 0.14, false, `customer (?:care|support|service)|helpline|toll.?free`),

	cp("financial.send_money", domain.CategoryFinancial, 0.25, true, `send (?:money|payment|amount|funds|rs\.?|rupees|inr)`),
	cp("financial.transfer", domain.CategoryFinancial, 0.22, false, `transfer (?:to|into|money)|\bwire\b|remittance`),
	cp("financial.upi", domain.CategoryFinancial, 0.20, false, `upi://|@(?:upi|paytm|gpay|phonepe|ybl|okaxis|okhdfcbank)\b`),
	cp("financial.pay_now", domain.CategoryFinancial, 0.18, true, `pay (?:to|now|immediately|using)|payment link`),
	cp("financial.fee", domain.CategoryFinancial, 0.20, true, `processing fee|activation (?:fee|charge)|registration (?:fee|charge)`),

	cp("verification.kyc", domain.CategoryVerification, 0.22, true, `kyc (?:update|verify|pending|expired|required)`),
	cp("verification.verify_your", domain.CategoryVerification, 0.20, true, `verify your (?:account|identity|details|kyc|pan|aadhaar)`),
	cp("verification.immediate", domain.CategoryVerification, 0.20, true, `verify (?:now|immediately|today|at once)|immediate verification`),
	cp("verification.pan", domain.CategoryVerification, 0.18, true, `\bpan (?:card|number|verification|update|link)`),
	cp("verification.aadhaar", domain.CategoryVerification, 0.18, true, `aadhaar (?:card|number|verification|update|link)`),
	cp("verification.details", domain.CategoryVerification, 0.15, true, `update (?:your )?details|complete verification`),

	cp("credential.otp", domain.CategoryCredential, 0.25, true, `\botp\b|one.?time.?password|verification code`),
	cp("credential.share", domain.CategoryCredential, 0.28, true, `share (?:your )?(?:otp|password|pin|cvv|card number)`),
	cp("credential.enter", domain.CategoryCredential, 0.22, true, `enter (?:otp|password|pin)|confirm (?:otp|password)`),
	cp("credential.card", domain.CategoryCredential, 0.20, true, `card (?:number|details|cvv|expiry)`),
	cp("credential.netbanking", domain.CategoryCredential, 0.12, false, `netbanking|internet banking|mobile banking`),

	cp("threat.account_blocked", domain.CategoryThreat, 0.22, true, `account (?:blocked|suspended|frozen|closed|deactivated)`),
	cp("threat.will_be", domain.CategoryThreat, 0.20, true, `will be (?:blocked|suspended|frozen|closed|deactivated)`),
	cp("threat.unauthorized", domain.CategoryThreat, 0.18, true, `unauthori[sz]ed (?:access|transaction|activity)`),
	cp("threat.suspicious", domain.CategoryThreat, 0.16, true, `suspicious (?:activity|transaction|login)`),
	cp("threat.security", domain.CategoryThreat, 0.15, true, `security (?:alert|warning|issue|breach)`),

	cp("prize.winner", domain.CategoryPrize, 0.20, true, `winner|\bwon\b|prize|lottery|jackpot|\bselected\b|\blucky\b`),
	cp("prize.claim", domain.CategoryPrize, 0.18, true, `claim (?:your|now)|congratulations|you(?:'ve| have) been (?:selected|chosen)`),
	cp("prize.reward", domain.CategoryPrize, 0.12, false, `reward|cashback|bonus|\bgift\b|voucher|coupon`),

	cp("employment.wfh", domain.CategoryEmployment, 0.16, true, `work from home|home based job|part.?time job`),
	cp("employment.easy_money", domain.CategoryEmployment, 0.18, true, `easy money|quick money|earn (?:daily|weekly|monthly)`),
	cp("employment.no_experience", domain.CategoryEmployment, 0.15, true, `no experience|no investment|guaranteed income`),
	cp("employment.online_job", domain.CategoryEmployment, 0.10, false, `data entry|typing job|online job|freelance`),

	cp("loan.instant", domain.CategoryLoan, 0.18, true, `instant loan|easy loan|pre.?approved loan`),
	cp("loan.approved", domain.CategoryLoan, 0.16, true, `loan (?:approved|sanctioned)|credit (?:limit|card) (?:approved|ready)`),
	cp("loan.terms", domain.CategoryLoan, 0.14, false, `low interest|no documentation|instant approval`),

	cp("romance.feelings", domain.CategoryRomance, 0.08, false, `\blove\b|miss you|\bheart\b|feelings|relationship`),
	cp("romance.partner", domain.CategoryRomance, 0.10, false, `dating|\bmarry\b|life partner|soul ?mate`),

	cp("contact.new_number", domain.CategoryContact, 0.10, false, `new number|changed (?:my )?number|whatsapp me`),
	cp("contact.call_me", domain.CategoryContact, 0.08, false, `call (?:me|this number)|contact (?:me|us)`),
}

// HighRiskKeywords add a fixed step each when present.
var HighRiskKeywords = keywords(
	"bitcoin", "ethereum", "crypto", "wallet", "private key",
	"gift card", "steam card", "google play card", "amazon gift",
	"bank transfer", "wire transfer", "western union", "moneygram",
	"upi id", "gpay", "phonepe", "paytm", "bhim",
	"account suspended", "account blocked", "verify identity", "confirm details",
	"legal action", "police complaint", "fir", "arrest warrant",
	"processing fee", "activation fee", "delivery fee", "registration fee",
	"customs duty", "import tax", "clearance fee", "gst payment",
	"otp", "cvv", "pin", "password", "card number", "expiry date",
	"pan card", "aadhaar", "voter id",
	"inheritance", "lottery winner", "prince", "oil money", "gold investment",
)

// MediumRiskKeywords add a smaller step each when present.
var MediumRiskKeywords = keywords(
	"investment", "returns", "profit", "passive income", "mutual fund",
	"opportunity", "business proposal", "partnership", "offer",
	"dating", "relationship", "marriage", "love",
	"job offer", "work from home", "freelance", "recruitment",
	"prize", "winner", "selected", "lucky", "congratulations",
	"verify", "update", "confirm", "kyc", "link aadhaar", "blocked",
)

// FinancialTopicKeywords drive the rapid-escalation heuristic over history.
var FinancialTopicKeywords = keywords(
	"money", "payment", "transfer", "send", "bank", "upi", "otp", "verify",
)

// ManipulationPhrases are emotional-manipulation cues.
var ManipulationPhrases = phrases(
	"need_help", `(?i)i need your help`,
	"trust_me", `(?i)trust me`,
	"between_us", `(?i)between you and me`,
	"secret", `(?i)our little secret`,
	"dont_tell", `(?i)don'?t tell anyone`,
	"only_you", `(?i)only for you`,
	"special_offer", `(?i)special offer`,
	"exclusive", `(?i)exclusive`,
)

// PressurePhrases are explicit pressure tactics.
var PressurePhrases = phrases(
	"last_chance", `(?i)last chance`,
	"final_warning", `(?i)final warning`,
	"no_option", `(?i)no other option`,
	"only_way", `(?i)only way`,
	"must_act", `(?i)must (?:do|act|respond)`,
)

// InstitutionalPhrases are formal scam-notice phrasings.
var InstitutionalPhrases = phrases(
	"dear_customer", `(?i)dear (?:customer|user|member|valued)`,
	"inform_you", `(?i)this is to inform you`,
	"we_regret", `(?i)\bwe (?:regret|notice|observe)`,
	"as_per", `(?i)as per (?:rbi|bank|government) (?:guidelines|rules|regulations)`,
	"failure_to", `(?i)failure to (?:comply|respond|verify)`,
	"within_hours", `(?i)within (?:24|48|72) hours`,
	"click_link", `(?i)click (?:the|on|below) link`,
	"download_app", `(?i)download (?:the|this) app`,
)

// FinancialContextPatterns flag money vocabulary.
var FinancialContextPatterns = phrases(
	"money", `(?i)money|payment|transfer|\bbank|account`,
	"wallets", `(?i)\bupi\b|gpay|phonepe|paytm|\bbhim\b`,
	"movement", `(?i)\bsend|receive|deposit|withdraw`,
	"charges", `(?i)\bfee\b|charge|\bcost\b|price|amount|\brs\.?|rupees|\binr\b`,
	"credit", `(?i)\bloan|credit|\bemi\b|interest`,
)

// DirectRequestPatterns flag imperative requests aimed at the persona.
var DirectRequestPatterns = phrases(
	"send", `(?i)send (?:me|us|your|the)`,
	"transfer", `(?i)transfer (?:me|us|to)`,
	"give", `(?i)give (?:me|us|your)`,
	"pay", `(?i)pay (?:me|us|to|now)`,
	"share", `(?i)share (?:your|the|otp|password|pin)`,
	"click", `(?i)click (?:here|on|this|the link)`,
	"download", `(?i)download (?:this|the) app`,
	"call", `(?i)call (?:me|this number|now)`,
	"verify", `(?i)verify (?:your|now|immediately)`,
)

// UrgencyLevel pairs a level with the pattern that signals it.
type UrgencyLevel struct {
	Level domain.Urgency
	Re    *regexp.Regexp
}

// UrgencyLevels are checked in order; the first match wins.
var UrgencyLevels = []UrgencyLevel{
	{domain.UrgencyCritical, regexp.MustCompile(`(?i)urgent|immediately|\basap\b|right now|this moment`)},
	{domain.UrgencyHigh, regexp.MustCompile(`(?i)within \d+ (?:minutes?|hours?)|today|tonight`)},
	{domain.UrgencyMedium, regexp.MustCompile(`(?i)\bsoon\b|this week|within \d+ days`)},
	{domain.UrgencyLow, regexp.MustCompile(`(?i)when possible|at your convenience`)},
}

// SuspiciousKeywordPatterns capture tactic vocabulary recorded on the session.
var SuspiciousKeywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)urgent`),
	regexp.MustCompile(`(?i)immediately`),
	regexp.MustCompile(`(?i)verify now`),
	regexp.MustCompile(`(?i)account blocked`),
	regexp.MustCompile(`(?i)suspended`),
	regexp.MustCompile(`(?i)prize`),
	regexp.MustCompile(`(?i)lottery`),
	regexp.MustCompile(`(?i)winner`),
	regexp.MustCompile(`(?i)\bkyc\b`),
	regexp.MustCompile(`(?i)\botp\b`),
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)click here`),
	regexp.MustCompile(`(?i)limited time`),
	regexp.MustCompile(`(?i)act now`),
	regexp.MustCompile(`(?i)final warning`),
	regexp.MustCompile(`(?i)last chance`),
}

// StallingPatterns recognise replies that put the counterpart off.
var StallingPatterns = phrases(
	"busy", `(?i)sorry.*busy`,
	"let_me", `(?i)let me (?:check|think|ask)`,
	"need_to", `(?i)need to (?:talk|discuss|ask)`,
	"later", `(?i)\blater\b|tomorrow`,
	"work", `(?i)work.*crazy`,
	"meeting", `(?i)meeting soon`,
)
