package strategy

import (
	"regexp"
	"strings"
)

// Tone is the apparent emotional register of the counterpart.
type Tone string

// Tones, in detection priority order.
const (
	TonePolite     Tone = "polite"
	ToneUrgent     Tone = "urgent"
	ToneUpset      Tone = "upset"
	ToneAggressive Tone = "aggressive"
	ToneGrateful   Tone = "grateful"
	ToneNeutral    Tone = "neutral"
)

// Analysis is the pure text reading of one incoming message.
type Analysis struct {
	Tone      Tone    `json:"tone"`
	Urgency   bool    `json:"urgency"`
	Fear      bool    `json:"fear"`
	Greed     bool    `json:"greed"`
	Authority bool    `json:"authority"`
	Rapport   bool    `json:"rapport"`
	Question  bool    `json:"question"`
	Greeting  bool    `json:"greeting"`
	Goodbye   bool    `json:"goodbye"`
	Pressure  float64 `json:"pressure"`
}

var tones = []struct {
	tone Tone
	re   *regexp.Regexp
}{
	{TonePolite, regexp.MustCompile(`(?i)please|kindly|request|help|sorry`)},
	{ToneUrgent, regexp.MustCompile(`(?i)urgent|important|critical|serious`)},
	{ToneUpset, regexp.MustCompile(`(?i)angry|upset|disappointed|complaint`)},
	{ToneAggressive, regexp.MustCompile(`!{2,}|(?i:warning|alert)`)},
	{ToneGrateful, regexp.MustCompile(`(?i)thank|grateful|appreciate`)},
}

var (
	urgencyCue   = regexp.MustCompile(`(?i)urgent|immediate|\bnow\b|quick|fast|hurry|\basap\b`)
	fearCue      = regexp.MustCompile(`(?i)block|suspend|arrest|legal|police|court|freeze|close`)
	greedCue     = regexp.MustCompile(`(?i)\bwon\b|prize|lottery|reward|\bfree\b|bonus|cashback|crore|lakh`)
	authorityCue = regexp.MustCompile(`(?i)officer|manager|department|government|\brbi\b|bank official`)
	rapportCue   = regexp.MustCompile(`(?i)\bdear\b|valued|respected|\bsir\b|madam|friend`)
	questionCue  = regexp.MustCompile(`(?i)\?|\b(?:kya|kaun|kaise|kab|kyun|where|what|when|why|how|who)\b`)
	greetingCue  = regexp.MustCompile(`(?i)^(?:hi|hello|hey|namaste|good\s*(?:morning|afternoon|evening))\b`)
	bareGreeting = regexp.MustCompile(`(?i)^(?:hi|hello|hey|namaste|good\s*(?:morning|afternoon|evening))(?:\s+(?:there|sir|madam|ji))?[\s!?,.]*$`)
	goodbyeCue   = regexp.MustCompile(`(?i)\bbye\b|goodbye|talk later|see you|alvida|phir milenge`)
)

var pressureCues = []struct {
	re     *regexp.Regexp
	weight float64
}{
	{regexp.MustCompile(`(?i)urgent|immediate`), 0.2},
	{regexp.MustCompile(`(?i)\d+\s*(?:minute|hour|second)`), 0.3},
	{regexp.MustCompile(`(?i)block|suspend|freeze`), 0.25},
	{regexp.MustCompile(`!{2,}`), 0.1},
	{regexp.MustCompile(`(?i)last chance|final warning`), 0.2},
	{regexp.MustCompile(`(?i)\bmust\b|have to|need to.*\bnow\b`), 0.15},
}

// Analyze reads tone, manipulation cues and pressure from text.
func Analyze(text string) Analysis {
	msg := strings.TrimSpace(text)
	a := Analysis{
		Tone:      ToneNeutral,
		Urgency:   urgencyCue.MatchString(msg),
		Fear:      fearCue.MatchString(msg),
		Greed:     greedCue.MatchString(msg),
		Authority: authorityCue.MatchString(msg),
		Rapport:   rapportCue.MatchString(msg),
		Question:  questionCue.MatchString(msg),
		Greeting:  greetingCue.MatchString(msg),
		Goodbye:   goodbyeCue.MatchString(msg),
	}
	for _, t := range tones {
		if t.re.MatchString(msg) {
			a.Tone = t.tone
			break
		}
	}
	for _, p := range pressureCues {
		if p.re.MatchString(msg) {
			a.Pressure += p.weight
		}
	}
	if a.Pressure > 1 {
		a.Pressure = 1
	}
	return a
}

// isBareGreeting reports whether text is nothing but a greeting.
func isBareGreeting(text string) bool {
	return bareGreeting.MatchString(strings.TrimSpace(text))
}
