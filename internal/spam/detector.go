package spam

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

// Threshold at or above which a submission is classified as spam.
const Threshold = 50

const honeypotScore = 100

// Input carries the submitted fields the detector scores.
type Input struct {
	Name     string
	Email    string
	Subject  string
	Message  string
	Honeypot string
}

// Result is the outcome of scoring one submission. Scores are additive across
// triggered heuristics; Reasons holds one entry per heuristic in trigger order.
type Result struct {
	IsSpam  bool     `json:"is_spam"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Detector scores submissions with a set of additive heuristics. Detection is
// pure and deterministic; the logger is used for diagnostics only.
type Detector struct {
	opts       Options
	urlPattern *regexp.Regexp
	suspicious []*regexp.Regexp
	logger     zerolog.Logger
}

// NewDetector compiles the configured patterns and returns a detector.
func NewDetector(opts Options, logger zerolog.Logger) (*Detector, error) {
	opts = opts.withDefaults()

	suspicious := make([]*regexp.Regexp, 0, len(opts.SuspiciousPatterns))
	for _, pattern := range opts.SuspiciousPatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid suspicious pattern %q: %w", pattern, err)
		}
		suspicious = append(suspicious, compiled)
	}

	return &Detector{
		opts:       opts,
		urlPattern: regexp.MustCompile(`(?i)(https?://|www\.)\S+`),
		suspicious: suspicious,
		logger:     logger.With().Str("component", "spam_detector").Logger(),
	}, nil
}

// Detect scores the input. A tripped honeypot short-circuits with score 100
// and a single reason; no other heuristics are evaluated in that case.
func (d *Detector) Detect(input Input) Result {
	if d.opts.HoneypotField != "" && input.Honeypot != d.opts.HoneypotValue {
		d.logger.Warn().
			Str("field", d.opts.HoneypotField).
			Str("expected", d.opts.HoneypotValue).
			Str("actual", input.Honeypot).
			Msg("honeypot field triggered")
		return Result{IsSpam: true, Score: honeypotScore, Reasons: []string{"Honeypot field triggered"}}
	}

	var (
		score   int
		reasons []string
	)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if len(input.Message) < d.opts.MinMessageLength {
		add(10, "Message too short")
	}
	if len(input.Message) > d.opts.MaxMessageLength {
		add(20, "Message too long")
	}

	if links := len(d.urlPattern.FindAllString(input.Message, -1)); links > d.opts.MaxLinks {
		add(30, fmt.Sprintf("Too many links (%d)", links))
	}

	haystack := strings.ToLower(input.Message + " " + input.Subject + " " + input.Name)
	var matchedWords []string
	for _, word := range d.opts.ForbiddenWords {
		if word == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(word)) {
			matchedWords = append(matchedWords, word)
		}
	}
	if len(matchedWords) > 0 {
		add(25*len(matchedWords), fmt.Sprintf("Forbidden words: %s", strings.Join(matchedWords, ", ")))
	}

	suspiciousMatches := 0
	for _, pattern := range d.suspicious {
		suspiciousMatches += len(pattern.FindAllString(input.Message, -1))
	}
	if suspiciousMatches > 0 {
		add(15*suspiciousMatches, fmt.Sprintf("Suspicious patterns matched %d times", suspiciousMatches))
	}

	if excessiveCapitalization(input.Message) {
		add(20, "Excessive capitalization")
	}
	if excessiveRepetition(input.Message) {
		add(15, "Excessive character repetition")
	}
	if nameEmailMismatch(input.Name, input.Email) {
		add(10, "Name and email mismatch")
	}

	result := Result{IsSpam: score >= Threshold, Score: score, Reasons: reasons}
	if result.IsSpam {
		d.logger.Warn().
			Int("score", result.Score).
			Strs("reasons", result.Reasons).
			Str("email", maskEmail(input.Email)).
			Msg("submission classified as spam")
	}
	return result
}

func excessiveCapitalization(message string) bool {
	letters, upper := 0, 0
	for _, r := range message {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters > 20 && float64(upper)/float64(letters) > 0.5
}

func excessiveRepetition(message string) bool {
	var last rune
	run := 0
	for _, r := range message {
		if r == last {
			run++
			if run >= 6 {
				return true
			}
		} else {
			last = r
			run = 1
		}
	}
	return false
}

// nameEmailMismatch is a weak heuristic: plenty of legitimate senders have
// addresses unrelated to their display name, so the weight stays low.
func nameEmailMismatch(name, email string) bool {
	at := strings.Index(email, "@")
	if at <= 3 {
		return false
	}
	local := strings.ToLower(email[:at])

	stripped := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if stripped == "" {
		return false
	}
	return !strings.Contains(local, stripped) && !strings.Contains(stripped, local)
}

func maskEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***"
	}
	local := parts[0]
	if local == "" {
		return "***@" + parts[1]
	}
	if len(local) <= 2 {
		local = local[:1] + "***"
	} else {
		local = local[:1] + "***" + local[len(local)-1:]
	}
	return local + "@" + parts[1]
}
