package strategy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ashureev/honeytrap/internal/domain"
)

var greetingReplies = []string{
	"Hello! Who's this? I don't have this number saved.",
	"Hi hi! Yes, who am I speaking with?",
	"Hello? Sorry, didn't catch your name. Who's calling?",
	"Hey! Yes tell me, who is this?",
	"Hi, this number's not saved. May I know who's messaging?",
	"Hello ji! Haan bolo, kaun hai?",
}

var goodbyeReplies = []string{
	"Okay, bye bye! Take care!",
	"Alright, talk later. Bye!",
	"Sure, no problem. Bye!",
	"Okay bye! Nice talking to you.",
}

var ambiguousReplies = []string{
	"Sorry, can you explain that in more detail? I want to understand properly.",
	"Hmm okay. Tell me more, what exactly is this regarding?",
	"I see. And what should I do about it? Walk me through the process.",
	"Interesting. But who am I speaking with? Which company is this?",
	"Okay okay, I'm listening. Please continue, what's the full situation?",
}

var universalReplies = []string{
	"Okay, I'm listening. Can you tell me a bit more?",
	"Hmm, I didn't fully follow. What do you need from me exactly?",
	"Sorry, one second. Can you say that again in simple words?",
}

var closingReplies = []string{
	"Thanks for all the information! I need to step away now but I'm really interested. Can we continue this later?",
	"This sounds great! I have a meeting soon but let me think about it and get back to you. Thanks for explaining everything!",
	"I appreciate you taking the time to explain this. I need to check with my family first. Can I reach out to you later?",
	"Wow, this is a lot to process! Let me do some research and get back to you. Thanks so much!",
	"I'm definitely interested but I need some time to think. Can we continue this conversation tomorrow?",
}

// recoveryReplies win back a counterpart who has been stalled too often.
var recoveryReplies = []string{
	"Sorry sorry, I'm back now and fully free. Okay, tell me exactly what I need to do.",
	"OK I think I was overthinking. I'm actually quite interested. What are the next steps?",
	"Apologies for the delay, my day was hectic. I'm here now, please continue.",
}

type topic struct {
	re    *regexp.Regexp
	lines []string
	flair bool
}

// smallTalkTopics are checked in order; unmatched chatter gets friendlyReplies.
var smallTalkTopics = []topic{
	{regexp.MustCompile(`(?i)how are you|kaise ho|how's it going|how are things`), []string{
		"I'm good, thanks for asking! Just busy with work. How about you?",
		"Doing well! Thoda tired from work but managing. You tell?",
		"All good here! Weekend planning is going on. And you?",
		"Theek hai, life chal rahi hai! How are you doing?",
	}, true},
	{regexp.MustCompile(`(?i)thank|dhanyavaad`), []string{
		"You're welcome! Happy to help.",
		"No problem at all!",
		"Anytime! Let me know if you need anything else.",
		"Most welcome! Take care.",
	}, false},
	{regexp.MustCompile(`(?i)sorry|apologi[sz]e|maafi`), []string{
		"No worries at all! It's okay.",
		"Arrey koi baat nahi! Don't worry about it.",
		"It's totally fine, no need to apologise!",
		"All good, don't stress about it!",
	}, false},
	{regexp.MustCompile(`(?i)weather|\brain|\bhot\b|\bcold\b|sunny|monsoon|humid`), []string{
		"Haan yaar, the weather is crazy these days! But tell me, what's up?",
		"I know right! Mumbai weather is so unpredictable. Anyway, what can I do for you?",
		"Yes yes! I stepped out today and it was so humid. But anyway, you were saying?",
	}, true},
	{regexp.MustCompile(`(?i)cricket|\bmatch\b|\bipl\b|world ?cup|kohli|rohit|dhoni`), []string{
		"Arrey don't get me started on cricket! My husband watches every match. But anyway, what were you messaging about?",
		"Haha yes! Did you see that catch? Amazing! But wait, what did you need from me?",
		"Cricket! My whole family was glued to the TV. But tell me, what's the purpose of your message?",
	}, true},
	{regexp.MustCompile(`(?i)food|\beat\b|lunch|dinner|breakfast|biryani|pizza|\bchai\b|coffee`), []string{
		"Oh nice! I'm actually getting hungry now haha. But anyway, what were we discussing?",
		"Yaar don't talk about food, I'm on a diet! But tell me, what did you message for?",
		"Mmm that sounds lovely! I just had maggi. Anyway, how can I help you?",
	}, true},
	{regexp.MustCompile(`(?i)family|husband|wife|\bkids\b|children|parents|mother|father`), []string{
		"Family is everything na! My husband always says the same. But tell me, what's the matter?",
		"So nice! Family time is the best. Anyway, what can I do for you?",
		"Haan, family first always! But coming back to the topic, what were you saying?",
	}, true},
}

var friendlyReplies = []string{
	"Hmm interesting! Tell me more about that?",
	"Oh I see. And then what happened?",
	"Accha accha, I'm listening. Go on...",
	"That's nice! What else?",
	"Okay okay, understood. Anything else?",
	"Haha nice! But anyway, what brings you to message me today?",
}

func (e *Engine) smallTalk(text string) string {
	for _, t := range smallTalkTopics {
		if t.re.MatchString(text) {
			if t.flair {
				return e.flair(e.pick(t.lines))
			}
			return e.pick(t.lines)
		}
	}
	return e.flair(e.pick(friendlyReplies))
}

// ask is a candidate set aimed at one missing identifier. An empty need is
// always eligible.
type ask struct {
	need  domain.EntityType
	lines []string
}

// fromAsks draws from the first ask whose identifier has not been collected.
func (e *Engine) fromAsks(known domain.Intelligence, asks []ask) string {
	for _, a := range asks {
		if a.need == "" || !known.Has(a.need) {
			return e.pick(a.lines)
		}
	}
	return e.pick(asks[len(asks)-1].lines)
}

var farewellAsks = []ask{
	{domain.EntityPhone, []string{
		"Wait wait, before you go, can you share your WhatsApp number? I'll message you.",
		"Okay but send me your contact number na? I want to follow up.",
	}},
	{domain.EntityName, []string{
		"Sure, but let me save your number. What was your name again?",
	}},
	{"", []string{
		"Alright, but what's your email? I'll confirm everything in writing.",
		"Okay, before you go, what's the best time to reach you again?",
	}},
}

func (e *Engine) lastAsk(known domain.Intelligence) string {
	return e.fromAsks(known, farewellAsks)
}

var (
	amountRe = regexp.MustCompile(`(?i)\brs\.?\s*\d+(?:,\d+)*|\b\d+(?:,\d+)*\s*(?:rupees|rs)\b`)
	timeRe   = regexp.MustCompile(`(?i)\b\d+\s*(?:minutes?|hours?|seconds?)\b`)
	cardRe   = regexp.MustCompile(`(?i)\bcvv\b|card (?:number|details)|expiry`)
)

func (e *Engine) engage(in Input) string {
	if in.Phase == domain.PhaseSuspicious {
		return e.pick(recoveryReplies)
	}

	ft := in.Classification.FraudType
	if ft == domain.FraudNone {
		ft = in.FraudType
	}

	var reply string
	switch ft {
	case domain.FraudOTP:
		if cardRe.MatchString(in.Text) {
			reply = e.fromAsks(in.Known, cardAsks)
		} else {
			reply = e.credential(in)
		}
	case domain.FraudKYC:
		reply = e.kyc(in)
	case domain.FraudLottery, domain.FraudBank:
		reply = e.prize(in)
	case domain.FraudThreat, domain.FraudImpersonation, domain.FraudUrgent:
		reply = e.threat(in)
	case domain.FraudJob:
		reply = e.fromAsks(in.Known, jobAsks)
	case domain.FraudLoan:
		reply = e.fromAsks(in.Known, investmentAsks)
	default:
		reply = e.generic(in)
	}
	return e.flair(reply)
}

var credentialEcho = []string{
	"OTP bhejun %s pe? But the SMS clearly says never share it... you are really from the bank?",
	"Wait, send it to %s? My bank says OTP is confidential. Why do you need it?",
	"%s? Hmm, I got the OTP but it says never share. Can you explain why you need it?",
}

var credentialAsks = []ask{
	{domain.EntityOrganization, []string{
		"OTP? But my bank always says never share OTP with anyone. Which bank and which branch are you from?",
		"OTP aaya but before I share, tell me, which bank is this and which branch?",
	}},
	{domain.EntityName, []string{
		"I got the OTP but banks don't usually ask for this right? What is your name and employee ID?",
		"Wait wait, OTP share karna hai? Tell me your full name first, I'm writing it down.",
	}},
	{domain.EntityPhone, []string{
		"Look, my husband said never share OTP over chat. Give me an official number, I'll call back and do it.",
		"I'm not comfortable sharing here. What's your direct landline? I'll call and confirm.",
	}},
	{"", []string{
		"Sorry but I'm nervous. Can we do this at the branch? Which address should I come to?",
		"I want to do this properly. What documents should I bring to the branch?",
	}},
}

func (e *Engine) credential(in Input) string {
	if in.Turn <= 2 {
		if phone, ok := in.Extraction.First(domain.EntityPhone); ok {
			return fmt.Sprintf(e.pick(credentialEcho), phone.Value)
		}
	}
	return e.fromAsks(in.Known, credentialAsks)
}

var cardAsks = []ask{
	{domain.EntityName, []string{
		"Card details? Okay, but first tell me, what's your name and employee ID for my records?",
		"I can share but I always note down who I'm talking to. Your name, department, branch?",
	}},
	{domain.EntityPhone, []string{
		"Before I share the card number, what's the official customer care number?",
		"Let me find my card. Meanwhile, what's your direct phone number and email?",
	}},
	{"", []string{
		"Which card are you asking about? I have multiple. And what's your employee code?",
	}},
}

var kycEarly = []string{
	"KYC pending? But I remember submitting everything. When did this issue come up?",
	"Arrey, I thought my KYC was complete! Which document is missing exactly?",
	"My Aadhaar and PAN are both linked since 2020. What specific problem are you seeing?",
	"KYC expired? But I got no SMS or email about this. When was it supposed to be done?",
}

var kycAsks = []ask{
	{domain.EntityURL, []string{
		"Okay I'm worried now. Is there an official website where I can complete this myself?",
		"Can you send me the exact page where I should update it? I'll do it right away.",
	}},
	{domain.EntityOrganization, []string{
		"I'll come to the bank with all documents. Which branch are you from?",
	}},
	{domain.EntityPhone, []string{
		"Give me a number I can call back on. I want to finish this over phone with you.",
	}},
	{"", []string{
		"Can you send me an official email about this? I want everything documented.",
		"Okay, which documents exactly? Aadhaar or PAN or both?",
	}},
}

func (e *Engine) kyc(in Input) string {
	if in.Turn <= 3 {
		return e.pick(kycEarly)
	}
	return e.fromAsks(in.Known, kycAsks)
}

var (
	prizeHandleEcho = []string{
		"%s pe bhejun? Okay wait, let me open GPay. What name should I see when I search?",
		"Sending to %s... but first, is this your personal account or the company's?",
		"%s right? Okay. Before I pay, what's your full name as registered on UPI?",
		"Got it, %s. But tell me, what organization is this from? I want to note it down.",
	}
	prizeAmountEcho = []string{
		"%s? That's quite a bit. But okay for the prize I can manage. What's the UPI ID?",
		"Hmm %s... let me see my balance. Tell me the exact payment details?",
		"%s I'll arrange. Give me the account number, IFSC, and beneficiary name.",
		"Okay %s. Before I transfer, what's the company name and your employee ID?",
	}
	prizeAsks = []ask{
		{domain.EntityPaymentHandle, []string{
			"Wait, I won something?! I'm so excited. Where do I send the fee, what's the UPI ID?",
			"Arrey wah! Prize for me? Okay, tell me how to pay the charges. GPay or PhonePe?",
		}},
		{domain.EntityName, []string{
			"Okay, payment is ready. Whose name will show when I send it?",
		}},
		{domain.EntityBankAccount, []string{
			"UPI is failing for me. Can you give the bank account number and IFSC instead?",
		}},
		{"", []string{
			"Lottery?? I never buy tickets though. Can you explain how I was selected?",
			"This sounds amazing. Send me an official email with all details please.",
		}},
	}
)

func (e *Engine) prize(in Input) string {
	if h, ok := in.Extraction.First(domain.EntityPaymentHandle); ok {
		return fmt.Sprintf(e.pick(prizeHandleEcho), h.Value)
	}
	if amount := amountRe.FindString(in.Text); amount != "" {
		return fmt.Sprintf(e.pick(prizeAmountEcho), amount)
	}
	return e.fromAsks(in.Known, prizeAsks)
}

var (
	threatTimeEcho = []string{
		"Only %s?? You're scaring me! But wait, what's your official number?",
		"%s?! That's too fast, I can't think properly. What's your supervisor's number?",
		"Arrey %s mein kaise! At least tell me your name and branch!",
		"%s is very less! I'm panicking now. Give me the helpdesk number I can call back on.",
	}
	threatAsks = []ask{
		{domain.EntityName, []string{
			"Oh god! You're scaring me. But even in an emergency I should be careful. What's your name and employee ID?",
			"Okay I'm worried now. But tell me your name and designation first.",
		}},
		{domain.EntityOrganization, []string{
			"This is so stressful! Which bank and which branch are you messaging from?",
		}},
		{domain.EntityPhone, []string{
			"Wait wait, let me calm down. What number can I call you back on?",
		}},
		{"", []string{
			"Can you give me a reference number for this issue?",
			"If my account is blocked, I'll go to the branch directly. Which address should I come to?",
		}},
	}
)

func (e *Engine) threat(in Input) string {
	if span := timeRe.FindString(in.Text); span != "" {
		return fmt.Sprintf(e.pick(threatTimeEcho), span)
	}
	return e.fromAsks(in.Known, threatAsks)
}

var jobAsks = []ask{
	{domain.EntityOrganization, []string{
		"Work from home job? Sounds interesting! But what company is this? I need to research first.",
		"Tell me more, what's the company name and your designation?",
	}},
	{domain.EntityURL, []string{
		"Daily earning is good but sounds too easy. Do you have a website I can look at?",
	}},
	{"", []string{
		"I'm interested but need details. What qualifications are required? And the interview process?",
	}},
}

var investmentAsks = []ask{
	{domain.EntityOrganization, []string{
		"Guaranteed returns? That sounds risky. What's your company name and SEBI registration?",
		"My CA handles my money matters. What's your company name so I can pass it on?",
	}},
	{domain.EntityURL, []string{
		"Interesting but I need to be careful. What's your official website?",
	}},
	{"", []string{
		"Hmm, I'm interested but cautious. Send me the documents by email please.",
	}},
}

var genericAsks = []ask{
	{domain.EntityName, []string{
		"Okay I understand. But before we proceed, what's your name and employee ID?",
		"Okay okay. Let me note down, what's your full name and official email?",
	}},
	{domain.EntityPhone, []string{
		"I'm following. But I always keep records, what's your contact number?",
		"Understood. What's the official helpline number I can call back on?",
	}},
	{domain.EntityOrganization, []string{
		"Hmm alright. Tell me clearly, which organization are you from exactly?",
	}},
	{"", []string{
		"Okay, and what happens after this? Walk me through it step by step.",
	}},
}

func (e *Engine) generic(in Input) string {
	if phone, ok := in.Extraction.First(domain.EntityPhone); ok {
		return fmt.Sprintf("Okay noted %s. Is this your direct number? I'll call back to confirm.", phone.Value)
	}
	if h, ok := in.Extraction.First(domain.EntityPaymentHandle); ok {
		return fmt.Sprintf("%s, got it. Before I proceed, what name will show on this UPI?", h.Value)
	}
	if amount := amountRe.FindString(in.Text); amount != "" {
		return fmt.Sprintf("%s? Okay. What's the exact UPI ID or account number?", amount)
	}
	return e.fromAsks(in.Known, genericAsks)
}

var (
	fillers = []string{"Umm, ", "So like, ", "Actually, ", "You know, ", "Basically, "}
	tags    = []string{" na?", " right?", " you know?", "...", " haina?"}
)

// flair adds a filler prefix or a trailing tag, each with its configured
// probability, from a single draw.
func (e *Engine) flair(reply string) string {
	if reply == "" {
		return reply
	}
	r := e.float()
	switch {
	case r < e.cfg.FillerProbability:
		reply = e.pick(fillers) + lowerFirst(reply)
	case r > 1-e.cfg.TagProbability:
		reply = strings.TrimRight(reply, ".?!") + e.pick(tags)
	}
	return reply
}

var (
	repeatPrefixes = []string{"Sorry, ", "Wait, ", "Hmm, ", "Okay so, ", "Like I said, "}
	repeatSuffixes = []string{" Please tell me.", " I'm asking again.", " Hello?", " Are you there?"}
)

// mutate rewrites a repeated reply with a prefix or suffix until it is new.
func (e *Engine) mutate(reply string, recent *domain.ReplyHistory) string {
	start := e.intN(len(repeatPrefixes))
	for i := range repeatPrefixes {
		c := repeatPrefixes[(start+i)%len(repeatPrefixes)] + lowerFirst(reply)
		if !recent.Contains(c) {
			return c
		}
	}
	for _, s := range repeatSuffixes {
		if c := reply + s; !recent.Contains(c) {
			return c
		}
	}
	return repeatPrefixes[start] + reply + repeatSuffixes[0]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsUpper(r) {
		return s
	}
	// Keep "I" and acronyms like "OTP" intact.
	if r == 'I' && (len(s) == size || !unicode.IsLetter(rune(s[size]))) {
		return s
	}
	if len(s) > size {
		next, _ := utf8.DecodeRuneInString(s[size:])
		if unicode.IsUpper(next) {
			return s
		}
	}
	return string(unicode.ToLower(r)) + s[size:]
}
