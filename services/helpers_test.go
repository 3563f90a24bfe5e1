package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/models"
	"github.com/blogem/contact-guard/repositories"
)

const (
	browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	clientIP  = "203.0.113.10"
)

// memorySession is a map-backed Session
type memorySession map[interface{}]interface{}

func (m memorySession) Set(key, value interface{}) error {
	m[key] = value
	return nil
}

func (m memorySession) Get(key interface{}) interface{} {
	return m[key]
}

func (m memorySession) Delete(key interface{}) error {
	delete(m, key)
	return nil
}

// fakeClock is a settable time source
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testConfig returns the reference configuration with mail settings filled in
// and the event log inside a temp dir
func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Mail.To = "sales@agroplus.es"
	cfg.Mail.From = "web@agroplus.es"
	cfg.Mail.SMTPHost = "localhost"
	cfg.EventLog.Path = filepath.Join(t.TempDir(), "contact.log")
	return cfg
}

func newTestEventLog(cfg *config.Config) repositories.EventLogRepository {
	return repositories.NewEventLogRepository(cfg.EventLog.Path, cfg.EventLog.MaxSize, cfg.EventLog.KeepLines)
}

func appendEvent(t *testing.T, log repositories.EventLogRepository, eventType models.EventType, ip string, at time.Time) {
	t.Helper()
	event := models.NewLogEvent(eventType, ip, browserUA, nil)
	event.Timestamp = at
	if err := log.Append(context.Background(), event); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func countEvents(t *testing.T, log repositories.EventLogRepository, eventType models.EventType) int {
	t.Helper()
	events, err := log.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	n := 0
	for _, e := range events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
