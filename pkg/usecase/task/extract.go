package task

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minTitleLength = 5
	maxTitleLength = 200
)

// Rule names of the action phrase classifier
const (
	RuleWill      = "will"
	RuleLetMe     = "let_me"
	RuleCan       = "can"
	RuleShould    = "should"
	RuleTask      = "task"
	RuleAction    = "action"
	RuleTodo      = "todo"
	RuleNeedTo    = "need_to"
	RuleGoingTo   = "going_to"
	RuleSequenced = "sequenced"
)

type rule struct {
	name    string
	pattern *regexp.Regexp
}

// rules are evaluated in order and the first match wins. Group 1 is the action.
// They mirror the phrasing the profile and system prompts ask the model to use,
// so both must change together. RuleSequenced goes before RuleWill, which would
// otherwise match the same sentences anywhere.
var rules = []rule{
	{RuleSequenced, regexp.MustCompile(`(?i)^(?:first|then|next|finally|also),?\s+I'll\s+(.+)`)},
	{RuleWill, regexp.MustCompile(`(?i)\bI(?:'ll|’ll| will)\s+(.+)`)},
	{RuleLetMe, regexp.MustCompile(`(?i)^let me\s+(.+)`)},
	{RuleCan, regexp.MustCompile(`(?i)^I can\s+(.+)`)},
	{RuleShould, regexp.MustCompile(`(?i)^I should\s+(.+)`)},
	{RuleTask, regexp.MustCompile(`(?i)^task:\s*(.+)`)},
	{RuleAction, regexp.MustCompile(`(?i)^action:\s*(.+)`)},
	{RuleTodo, regexp.MustCompile(`(?i)^to-?do:\s*(.+)`)},
	{RuleNeedTo, regexp.MustCompile(`(?i)^(?:we\s+)?(?:need to|should)\s+(.+)`)},
	{RuleGoingTo, regexp.MustCompile(`(?i)^(?:I'm\s+|I am\s+)?going to\s+(.+)`)},
}

var (
	emphasisMarks    = regexp.MustCompile("\\*+|__|`+")
	underscoreWord   = regexp.MustCompile(`(^|\W)_(\S(?:[^_\n]*\S)?)_(\W|$)`)
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+|\n+`)
	listMarker       = regexp.MustCompile(`^(?:[-•]|\d+[.)])\s+`)
	trailingPunct    = regexp.MustCompile(`[.!?,;:]+$`)
)

// Match is one action sentence recognized in a reply
type Match struct {
	Rule  string
	Title string
}

// Classify tests a single sentence against the rules
func Classify(sentence string) (Match, bool) {
	sentence = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(sentence), ""))
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(trailingPunct.ReplaceAllString(strings.TrimSpace(m[1]), ""))
		return Match{Rule: r.name, Title: title}, true
	}
	return Match{}, false
}

// ExtractMatches scans a reply for action sentences in reply order. Titles
// outside the length bounds and exact duplicates within the reply are dropped.
func ExtractMatches(reply string) []Match {
	text := stripEmphasis(reply)

	var (
		matches []Match
		seen    = make(map[string]struct{})
	)
	for _, sentence := range sentenceBoundary.Split(text, -1) {
		m, ok := Classify(sentence)
		if !ok {
			continue
		}

		n := utf8.RuneCountInString(m.Title)
		if n <= minTitleLength || n >= maxTitleLength {
			continue
		}
		if _, dup := seen[m.Title]; dup {
			continue
		}
		seen[m.Title] = struct{}{}
		matches = append(matches, m)
	}
	return matches
}

// stripEmphasis removes markdown emphasis. Single underscores are only
// dropped around words, so snake_case names survive.
func stripEmphasis(text string) string {
	text = emphasisMarks.ReplaceAllString(text, "")
	// adjacent spans share a boundary character, so a second pass catches them
	for range 2 {
		text = underscoreWord.ReplaceAllString(text, "${1}${2}${3}")
	}
	return text
}

// Extract returns the task titles found in a reply
func Extract(reply string) []string {
	matches := ExtractMatches(reply)
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, m.Title)
	}
	return titles
}
