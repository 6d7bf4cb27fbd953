package service

import "strings"

// Intent classifies an incoming chat message for the adjustment flow.
type Intent int

const (
	IntentNone Intent = iota
	IntentConfirm
	IntentReject
	IntentAdjust
)

var confirmPhrases = []string{
	"yes", "yep", "yeah", "yes please", "ok", "okay", "sure", "confirm",
	"sounds good", "looks good", "go ahead", "do it", "perfect", "great",
	"that works",
}

var rejectPhrases = []string{
	"no", "nope", "cancel", "wait", "don't", "dont", "nevermind",
	"never mind", "leave it", "forget it", "no thanks",
}

var changeVerbs = []string{
	"change", "move", "swap", "adjust", "reschedule", "shift", "replace",
	"shorten", "extend", "switch", "make it", "can we do", "instead",
}

var workoutWords = []string{
	"run", "workout", "session", "tempo", "interval", "long run",
	"easy run", "rest day", "plan",
}

var weekdayWords = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
	"sunday", "tomorrow", "today",
}

// ClassifyMessage maps a chat message to an intent using keyword and phrase
// matching. Adjustment requests are checked first so that "no, move it to
// friday" replaces the pending change rather than rejecting it.
func ClassifyMessage(text string) Intent {
	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" {
		return IntentNone
	}

	if containsAny(msg, changeVerbs) && (containsAny(msg, workoutWords) || containsAny(msg, weekdayWords)) {
		return IntentAdjust
	}
	if matchesPhrase(msg, confirmPhrases) {
		return IntentConfirm
	}
	if matchesPhrase(msg, rejectPhrases) {
		return IntentReject
	}
	return IntentNone
}

func containsAny(msg string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// matchesPhrase requires the message to open with one of the phrases, so a
// longer sentence that merely mentions "ok" somewhere is not a confirmation.
func matchesPhrase(msg string, phrases []string) bool {
	trimmed := strings.Trim(msg, ".,!? ")
	for _, p := range phrases {
		if trimmed == p || strings.HasPrefix(trimmed, p+" ") ||
			strings.HasPrefix(trimmed, p+",") || strings.HasPrefix(trimmed, p+"!") {
			return true
		}
	}
	return false
}
