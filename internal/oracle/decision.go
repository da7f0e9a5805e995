// internal/oracle/decision.go
package oracle

import (
	"regexp"
	"strings"
)

// Action is the vocabulary the oracle may choose from. Anything outside this
// set is treated as ActionWait at execution time.
type Action string

const (
	ActionClick Action = "click"
	ActionType  Action = "type"
	ActionWait  Action = "wait"
	ActionDone  Action = "done"
)

// Decision is the oracle's structured recommendation for the next UI step.
// Action holds the lower-cased value exactly as the oracle produced it, so an
// unrecognized verb stays visible in logs; Normalized maps it onto the known
// vocabulary.
type Decision struct {
	Action    string `json:"action"`
	Target    string `json:"target"`
	Value     string `json:"value"`
	Reasoning string `json:"reasoning"`

	// Raw carries the untouched response text (or the transport error text for
	// a synthetic decision). Diagnostic only.
	Raw string `json:"raw,omitempty"`
}

// Normalized returns the effective action: one of the four known verbs, with
// everything else degraded to ActionWait.
func (d Decision) Normalized() Action {
	switch Action(d.Action) {
	case ActionClick, ActionType, ActionWait, ActionDone:
		return Action(d.Action)
	default:
		return ActionWait
	}
}

// IsDone reports whether the decision terminates the loop.
func (d Decision) IsDone() bool { return Action(d.Action) == ActionDone }

var fieldPatterns = map[string]*regexp.Regexp{
	"action":    regexp.MustCompile(`(?i)action:[ \t]*(.*)`),
	"target":    regexp.MustCompile(`(?i)target:[ \t]*(.*)`),
	"value":     regexp.MustCompile(`(?i)value:[ \t]*(.*)`),
	"reasoning": regexp.MustCompile(`(?i)reasoning:[ \t]*(.*)`),
}

// ParseDecision extracts the four labeled fields from a raw oracle response.
// Matching is case-insensitive on the first occurrence of each label; a
// missing label yields an empty field. It never fails: arbitrary text parses
// to an all-empty decision, which downstream degrades to a wait.
func ParseDecision(text string) Decision {
	txt := strings.TrimSpace(text)

	grab := func(field string) string {
		m := fieldPatterns[field].FindStringSubmatch(txt)
		if m == nil {
			return ""
		}
		return strings.TrimSpace(m[1])
	}

	return Decision{
		Action:    strings.ToLower(grab("action")),
		Target:    grab("target"),
		Value:     grab("value"),
		Reasoning: grab("reasoning"),
		Raw:       txt,
	}
}

// targetSuffixSeparators mark descriptive suffixes the oracle sometimes
// appends to an element label ("Save (top right)", "Name - under Details").
// Sanitation keeps only the prefix before the first separator.
var targetSuffixSeparators = []string{" (", " - ", " — ", " -> ", " → ", " under ", " / "}

// SanitizeTarget normalizes a free-text element target: trims, truncates at
// the first descriptive-suffix separator, and strips surrounding quotes.
// The operation is idempotent.
func SanitizeTarget(target string) string {
	t := strings.TrimSpace(target)
	for _, sep := range targetSuffixSeparators {
		if i := strings.Index(t, sep); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
	}
	t = strings.Trim(t, " '\"")
	return strings.TrimSpace(t)
}

// Sanitize returns the decision with its action and target fields cleaned up
// for execution.
func Sanitize(d Decision) Decision {
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	d.Target = SanitizeTarget(d.Target)
	d.Value = strings.TrimSpace(d.Value)
	return d
}
