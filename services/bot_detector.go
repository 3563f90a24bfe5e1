package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// BotDetector flags automated clients from request metadata
type BotDetector interface {
	Inspect(userAgent string, formRenderedAt time.Time, rendered bool) Verdict
}

// botDetector implements BotDetector interface
type botDetector struct {
	agents     []string
	patterns   []*regexp.Regexp
	minElapsed time.Duration
	now        func() time.Time
}

// NewBotDetector builds a detector from user-agent substrings, user-agent
// regexes and the minimum time a human needs to fill the form
func NewBotDetector(agents, patterns []string, minElapsed time.Duration, now func() time.Time) (BotDetector, error) {
	if now == nil {
		now = time.Now
	}
	d := &botDetector{minElapsed: minElapsed, now: now}
	for _, a := range agents {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			d.agents = append(d.agents, a)
		}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid bot pattern %q: %w", p, err)
		}
		d.patterns = append(d.patterns, re)
	}
	return d, nil
}

// Inspect checks the user agent and, when the form render time is known, how
// fast the form came back
func (d *botDetector) Inspect(userAgent string, formRenderedAt time.Time, rendered bool) Verdict {
	if strings.TrimSpace(userAgent) == "" {
		return reject("empty user agent")
	}

	lower := strings.ToLower(userAgent)
	for _, a := range d.agents {
		if strings.Contains(lower, a) {
			return reject("suspicious user agent: " + a)
		}
	}
	for _, re := range d.patterns {
		if re.MatchString(userAgent) {
			return reject("bot user agent pattern: " + re.String())
		}
	}

	if rendered {
		if elapsed := d.now().Sub(formRenderedAt); elapsed < d.minElapsed {
			return reject(fmt.Sprintf("form submitted too fast: %s", elapsed))
		}
	}

	return accept()
}
