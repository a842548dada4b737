// Package extract converts raw caller utterances into typed field values.
//
// Every extractor is a pure function returning a candidate value plus an ok
// flag; malformed input yields (_, false), never an error. Speech recognition
// output is noisy, so each extractor layers multiple strategies from most to
// least precise.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// nonAnswers are utterances that acknowledge a prompt without answering it.
// They are rejected as field values by every extractor.
var nonAnswers = map[string]struct{}{
	"yes": {}, "yeah": {}, "yep": {}, "no": {}, "nope": {},
	"ok": {}, "okay": {}, "sure": {}, "fine": {},
	"thanks": {}, "thank you": {}, "hello": {}, "hi": {}, "hey": {},
	"skip": {}, "nothing": {}, "hmm": {}, "um": {}, "uh": {},
}

// IsNonAnswer reports whether the utterance is a bare acknowledgement rather
// than an answer. Matching is exact (case-insensitive, punctuation trimmed).
func IsNonAnswer(text string) bool {
	cleaned := strings.ToLower(strings.TrimFunc(strings.TrimSpace(text), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	}))
	_, found := nonAnswers[cleaned]
	return found
}

var (
	namePrefixPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmy name is\s+(.+)`),
		regexp.MustCompile(`(?i)\bi am\s+(.+)`),
		regexp.MustCompile(`(?i)\bi'm\s+(.+)`),
		regexp.MustCompile(`(?i)\bcall me\s+(.+)`),
		regexp.MustCompile(`(?i)\bthis is\s+(.+)`),
	}
	bareNamePattern = regexp.MustCompile(`^[A-Z][a-z]+(?: [A-Z][a-z]+){1,2}$`)
	nonDigitPattern = regexp.MustCompile(`\D`)
	digitPattern    = regexp.MustCompile(`^\d+$`)
	separatedPhone  = regexp.MustCompile(`\d{3}[-.\s]\d{3}[-.\s]\d{4}`)
	emailPattern    = regexp.MustCompile(`[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	alnumOnly       = regexp.MustCompile(`[^a-z0-9]`)
)

// ValidName reports whether a candidate string is acceptable as a caller name.
func ValidName(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if len(candidate) < 2 || IsNonAnswer(candidate) {
		return false
	}
	return !digitPattern.MatchString(spaceStripped(candidate))
}

// spaceStripped removes all whitespace, leaving other characters intact.
func spaceStripped(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Name extracts a caller name from an utterance. Ordered strategies: known
// introduction prefixes, a bare capitalized-words pattern, then the whole
// utterance when it plausibly is just the name.
func Name(utterance string) (string, bool) {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" || IsNonAnswer(trimmed) {
		return "", false
	}

	for _, pattern := range namePrefixPatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			candidate := strings.TrimRight(strings.TrimSpace(m[1]), ".!?,")
			if ValidName(candidate) {
				return candidate, true
			}
		}
	}

	if bareNamePattern.MatchString(trimmed) {
		return trimmed, true
	}

	// Last resort: the caller may have answered with nothing but their name.
	if len(strings.Fields(trimmed)) >= 2 && ValidName(trimmed) {
		return strings.TrimRight(trimmed, ".!?,"), true
	}
	return "", false
}

// digitWords maps spoken digit words to their characters.
var digitWords = map[string]string{
	"zero": "0", "oh": "0", "one": "1", "two": "2", "three": "3",
	"four": "4", "five": "5", "six": "6", "seven": "7", "eight": "8",
	"nine": "9",
}

// Digits converts an utterance to its digit content, handling spoken digit
// words ("nine", "oh") and "double/triple X" constructs alongside literal
// digits. Non-digit tokens are skipped.
func Digits(utterance string) string {
	var out strings.Builder
	repeat := 1
	for _, token := range strings.Fields(strings.ToLower(utterance)) {
		token = strings.Trim(token, ".,!?-")
		switch token {
		case "double":
			repeat = 2
			continue
		case "triple":
			repeat = 3
			continue
		}
		var digit string
		if d, found := digitWords[token]; found {
			digit = d
		} else if literal := nonDigitPattern.ReplaceAllString(token, ""); literal != "" {
			digit = literal
		}
		for i := 0; i < repeat && digit != ""; i++ {
			out.WriteString(digit)
		}
		repeat = 1
	}
	return out.String()
}

// lastN keeps the trailing n characters, dropping leading noise or a country
// code when the caller gave more digits than expected.
func lastN(digits string, n int) string {
	if len(digits) > n {
		return digits[len(digits)-n:]
	}
	return digits
}

// Phone extracts a 10-digit phone number. Strategies in order: strip
// non-digits from the whole utterance, convert spoken digit words, then match
// conventional separated formats. Results longer than 10 digits keep the last
// 10.
func Phone(utterance string) (string, bool) {
	if direct := nonDigitPattern.ReplaceAllString(utterance, ""); len(direct) >= 10 {
		return lastN(direct, 10), true
	}
	if spoken := Digits(utterance); len(spoken) >= 10 {
		return lastN(spoken, 10), true
	}
	if m := separatedPhone.FindString(utterance); m != "" {
		digits := nonDigitPattern.ReplaceAllString(m, "")
		if len(digits) >= 10 {
			return lastN(digits, 10), true
		}
	}
	return "", false
}

// emailProviders are recognized mail hosts used for address synthesis when
// only a fragment was heard.
var emailProviders = []string{"gmail", "yahoo", "hotmail", "outlook"}

// sanitizeUsername reduces free text to the alphanumeric local part of an
// address. The result is deterministic for identical input.
func sanitizeUsername(text string) string {
	return alnumOnly.ReplaceAllString(strings.ToLower(text), "")
}

// emailFillerWords are tokens discarded when deriving a username from the
// text preceding a provider keyword ("my email is on gmail").
var emailFillerWords = map[string]struct{}{
	"my": {}, "email": {}, "mail": {}, "address": {}, "id": {}, "is": {},
	"it": {}, "its": {}, "it's": {}, "on": {}, "at": {}, "the": {}, "a": {},
	"an": {}, "i": {}, "use": {}, "dot": {},
}

// Email extracts an email address. Spoken "at"/"dot" are normalized first;
// when no full address is present but a known provider is mentioned, an
// address is synthesized from the text before the provider or from the
// caller's already-captured name.
func Email(utterance, capturedName string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	if lowered == "" || IsNonAnswer(lowered) {
		return "", false
	}

	normalized := " " + lowered + " "
	normalized = strings.ReplaceAll(normalized, " at ", "@")
	normalized = strings.ReplaceAll(normalized, " dot ", ".")

	// Match with surrounding words intact first; stripping every space can
	// glue a preceding word onto the username.
	if m := emailPattern.FindString(normalized); m != "" {
		return m, true
	}
	if m := emailPattern.FindString(strings.ReplaceAll(normalized, " ", "")); m != "" {
		return m, true
	}

	for _, provider := range emailProviders {
		idx := strings.Index(lowered, provider)
		if idx < 0 {
			continue
		}
		var kept []string
		for _, token := range strings.Fields(lowered[:idx]) {
			if _, filler := emailFillerWords[token]; !filler {
				kept = append(kept, token)
			}
		}
		username := sanitizeUsername(strings.Join(kept, ""))
		if username == "" {
			username = sanitizeUsername(capturedName)
		}
		if username == "" {
			username = "caller"
		}
		return username + "@" + provider + ".com", true
	}
	return "", false
}

var (
	slashDate   = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	dashDate    = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)
	isoDate     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	monthDate   = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})`)
	monthNumber = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	}
	dateHintTokens = []string{
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"january", "february", "march", "april", "may", "june", "july", "august",
		"september", "october", "november", "december", "week", "year", "month",
	}
)

func isoFromParts(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// Date extracts an incident date relative to now. Relative phrases map to
// computed ISO dates; explicit numeric and "Month D, YYYY" forms are parsed;
// text that merely hints at a date is kept verbatim as a best-effort value.
func Date(utterance string, now time.Time) (string, bool) {
	trimmed := strings.TrimSpace(utterance)
	lowered := strings.ToLower(trimmed)
	if lowered == "" || IsNonAnswer(lowered) {
		return "", false
	}

	switch {
	case strings.Contains(lowered, "day before yesterday"):
		return now.AddDate(0, 0, -2).Format("2006-01-02"), true
	case strings.Contains(lowered, "yesterday"):
		return now.AddDate(0, 0, -1).Format("2006-01-02"), true
	case strings.Contains(lowered, "today"):
		return now.Format("2006-01-02"), true
	case strings.Contains(lowered, "last week"):
		return now.AddDate(0, 0, -7).Format("2006-01-02"), true
	}

	if m := isoDate.FindStringSubmatch(trimmed); m != nil {
		return isoFromParts(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3])), true
	}
	if m := slashDate.FindStringSubmatch(trimmed); m != nil {
		return isoFromParts(atoi(m[3]), time.Month(atoi(m[2])), atoi(m[1])), true
	}
	if m := dashDate.FindStringSubmatch(trimmed); m != nil {
		return isoFromParts(atoi(m[3]), time.Month(atoi(m[2])), atoi(m[1])), true
	}
	if m := monthDate.FindStringSubmatch(trimmed); m != nil {
		return isoFromParts(atoi(m[3]), monthNumber[strings.ToLower(m[1])], atoi(m[2])), true
	}

	// Digits with no recognized shape are likely a misheard number, not a date.
	if digitPattern.MatchString(spaceStripped(trimmed)) {
		return "", false
	}

	for _, hint := range dateHintTokens {
		if ContainsWord(lowered, hint) {
			return trimmed, true
		}
	}
	return "", false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// ContainsWord reports whether text contains word as a whole token.
// Comparison is case-sensitive; callers lowercase first.
func ContainsWord(text, word string) bool {
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if token == word {
			return true
		}
	}
	return false
}

var (
	affirmativeWords   = []string{"yes", "yeah", "yep", "correct", "right", "sure", "ok", "okay", "confirm", "confirmed", "absolutely", "definitely"}
	negativeWords      = []string{"no", "nope", "wrong", "incorrect", "restart", "change"}
	negativePhrases    = []string{"not right", "not correct", "start over", "start again"}
	skipPhrases        = []string{"skip", "don't have", "dont have", "do not have", "no phone", "no email", "rather not", "prefer not"}
	affirmativePhrases = []string{"go ahead", "that's right", "thats right"}
)

// containsNegation reports whether a lowered utterance carries any negation
// marker. "not" is checked on its own so compounds like "that's not okay"
// count even without a listed phrase.
func containsNegation(lowered string) bool {
	for _, phrase := range negativePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	for _, word := range negativeWords {
		if ContainsWord(lowered, word) {
			return true
		}
	}
	return ContainsWord(lowered, "not")
}

// IsAffirmative reports whether the utterance is a recognized yes. A
// negation anywhere in the utterance wins: "no, that's not right" is never a
// yes even though it contains "right".
func IsAffirmative(text string) bool {
	lowered := strings.ToLower(text)
	if containsNegation(lowered) {
		return false
	}
	for _, phrase := range affirmativePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	for _, word := range affirmativeWords {
		if ContainsWord(lowered, word) {
			return true
		}
	}
	return false
}

// IsNegative reports whether the utterance is a recognized no.
func IsNegative(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range negativePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	for _, word := range negativeWords {
		if ContainsWord(lowered, word) {
			return true
		}
	}
	return false
}

// IsSkipRequest reports whether the caller asked to skip the current field.
func IsSkipRequest(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range skipPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

var (
	amountPattern   = regexp.MustCompile(`(?:₹|\$|rs\.?\s?|rupees\s|dollars\s|inr\s|usd\s)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	amountSuffixed  = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:rupees|dollars|bucks)`)
	evidencePattern = regexp.MustCompile(`https?://\S+`)
)

// AmountLost opportunistically captures a monetary amount mentioned in a
// description. A currency marker is required so case numbers and dates are
// not mistaken for money.
func AmountLost(utterance string) (float64, bool) {
	lowered := strings.ToLower(utterance)
	m := amountPattern.FindStringSubmatch(lowered)
	if m == nil {
		m = amountSuffixed.FindStringSubmatch(lowered)
	}
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

// EvidenceURL captures an http(s) link mentioned in a description.
func EvidenceURL(utterance string) (string, bool) {
	m := evidencePattern.FindString(utterance)
	return strings.TrimRight(m, ".,"), m != ""
}
