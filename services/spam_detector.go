package services

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxLinks         = 2
	maxRepeatedRunes = 10
)

var linkRegex = regexp.MustCompile(`https?://`)

// SpamDetector flags promotional or machine-generated message content
type SpamDetector interface {
	Inspect(text string) Verdict
}

// spamDetector implements SpamDetector interface
type spamDetector struct {
	keywords []string
	patterns []*regexp.Regexp
}

// NewSpamDetector compiles the configured patterns; keywords match
// case-insensitively as substrings.
func NewSpamDetector(keywords, patterns []string) (SpamDetector, error) {
	d := &spamDetector{}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			d.keywords = append(d.keywords, k)
		}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid spam pattern %q: %w", p, err)
		}
		d.patterns = append(d.patterns, re)
	}
	return d, nil
}

// Inspect returns the first rule the text trips, if any
func (d *spamDetector) Inspect(text string) Verdict {
	lower := strings.ToLower(text)
	for _, k := range d.keywords {
		if strings.Contains(lower, k) {
			return reject("spam keyword: " + k)
		}
	}

	for _, re := range d.patterns {
		if re.MatchString(text) {
			return reject("spam pattern: " + re.String())
		}
	}

	if n := len(linkRegex.FindAllStringIndex(text, -1)); n > maxLinks {
		return reject(fmt.Sprintf("too many links: %d", n))
	}

	if hasRepeatedRun(text, maxRepeatedRunes+1) {
		return reject("repeated characters")
	}

	return accept()
}

// hasRepeatedRun reports whether any character other than a newline occurs
// at least n times in a row
func hasRepeatedRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev && r != '\n' {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n && r != '\n' {
			return true
		}
	}
	return false
}
