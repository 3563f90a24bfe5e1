package repositories

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blogem/contact-guard/models"
)

func setupTestLog(t *testing.T, maxSize int64, keepLines int) (*fileEventLog, string) {
	path := filepath.Join(t.TempDir(), "logs", "contact.log")
	repo := NewEventLogRepository(path, maxSize, keepLines).(*fileEventLog)
	return repo, path
}

func appendAt(t *testing.T, repo *fileEventLog, ts time.Time, eventType models.EventType, ip string) {
	event := models.NewLogEvent(eventType, ip, "Mozilla/5.0", nil)
	event.Timestamp = ts
	if err := repo.Append(context.Background(), event); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
}

func TestEventLogAppend(t *testing.T) {
	repo, path := setupTestLog(t, 1024*1024, 1000)
	ctx := context.Background()

	// Append creates the directory and writes one JSON line per event
	appendAt(t, repo, time.Now(), models.EventEmailSent, "1.2.3.4")
	appendAt(t, repo, time.Now(), models.EventBotDetected, "5.6.7.8")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"type":"EMAIL_SENT"`) {
		t.Errorf("Expected EMAIL_SENT in first line, got %s", lines[0])
	}

	// Timestamp is stamped when missing
	event := models.NewLogEvent(models.EventError, "1.2.3.4", "", map[string]any{"message": "boom"})
	if err := repo.Append(ctx, event); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
	if event.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set by Append")
	}

	recent, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to read recent events: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 recent events, got %d", len(recent))
	}
	if recent[2].Data["message"] != "boom" {
		t.Errorf("Expected payload to round-trip, got %v", recent[2].Data)
	}
}

func TestEventLogCountEventsInWindow(t *testing.T) {
	repo, _ := setupTestLog(t, 1024*1024, 1000)
	ctx := context.Background()
	now := time.Now()

	appendAt(t, repo, now.Add(-10*time.Minute), models.EventEmailSent, "1.2.3.4")
	appendAt(t, repo, now.Add(-20*time.Minute), models.EventSpamDetected, "1.2.3.4")
	appendAt(t, repo, now.Add(-30*time.Minute), models.EventBotDetected, "1.2.3.4")  // not counted type
	appendAt(t, repo, now.Add(-2*time.Hour), models.EventValidationFailed, "1.2.3.4") // outside hour
	appendAt(t, repo, now.Add(-5*time.Minute), models.EventEmailSent, "9.9.9.9")      // other IP

	hourly, err := repo.CountEventsInWindow(ctx, "1.2.3.4", models.RateLimitedEvents, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if hourly != 2 {
		t.Errorf("Expected 2 events in the last hour, got %d", hourly)
	}

	daily, err := repo.CountEventsInWindow(ctx, "1.2.3.4", models.RateLimitedEvents, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if daily != 3 {
		t.Errorf("Expected 3 events in the last day, got %d", daily)
	}

	// Boundary is exclusive
	atBoundary, err := repo.CountEventsInWindow(ctx, "9.9.9.9", models.RateLimitedEvents, now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if atBoundary != 0 {
		t.Errorf("Expected event at the window start to be excluded, got %d", atBoundary)
	}
}

func TestEventLogCountSkipsMalformedLines(t *testing.T) {
	repo, path := setupTestLog(t, 1024*1024, 1000)
	appendAt(t, repo, time.Now(), models.EventEmailSent, "1.2.3.4")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	f.WriteString("not json\n\n")
	f.Close()

	appendAt(t, repo, time.Now(), models.EventEmailSent, "1.2.3.4")

	count, err := repo.CountEventsInWindow(context.Background(), "1.2.3.4", models.RateLimitedEvents, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events, got %d", count)
	}
}

func TestEventLogCountSkipsOversizedLines(t *testing.T) {
	repo, path := setupTestLog(t, 16*1024*1024, 1000)
	now := time.Now()
	appendAt(t, repo, now, models.EventEmailSent, "1.2.3.4")

	// A line longer than the scan limit, then a final event without a trailing newline
	huge := `{"timestamp":"` + now.UTC().Format(time.RFC3339) + `","ip":"1.2.3.4","type":"EMAIL_SENT","user_agent":"` +
		strings.Repeat(`\u003c`, maxLineSize/6+10) + "\"}\n"
	tail := fmt.Sprintf(`{"timestamp":%q,"ip":"1.2.3.4","type":"SPAM_DETECTED"}`, now.UTC().Format(time.RFC3339Nano))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	f.WriteString(huge)
	f.WriteString(tail)
	f.Close()

	count, err := repo.CountEventsInWindow(context.Background(), "1.2.3.4", models.RateLimitedEvents, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Expected oversized line to be skipped, got %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events around the oversized line, got %d", count)
	}
}

func TestEventLogCountMissingFile(t *testing.T) {
	repo, _ := setupTestLog(t, 1024, 10)

	count, err := repo.CountEventsInWindow(context.Background(), "1.2.3.4", models.RateLimitedEvents, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Expected no error for missing log, got %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0, got %d", count)
	}
}

func TestEventLogRotation(t *testing.T) {
	repo, path := setupTestLog(t, 2048, 5)
	now := time.Now()

	for i := 0; i < 40; i++ {
		appendAt(t, repo, now.Add(time.Duration(i)*time.Second), models.EventEmailSent, fmt.Sprintf("10.0.0.%d", i))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat log: %v", err)
	}
	if info.Size() > 2048 {
		t.Errorf("Expected log to stay under max size, got %d bytes", info.Size())
	}

	recent, err := repo.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(recent) == 0 || len(recent) >= 40 {
		t.Fatalf("Expected rotation to drop old events, got %d", len(recent))
	}
	if last := recent[len(recent)-1]; last.IPAddress != "10.0.0.39" {
		t.Errorf("Expected newest event to be retained, got %s", last.IPAddress)
	}
}

func TestEventLogRotateIfNeededIsIdempotentUnderThreshold(t *testing.T) {
	repo, path := setupTestLog(t, 1024*1024, 1000)
	ctx := context.Background()
	appendAt(t, repo, time.Now(), models.EventEmailSent, "1.2.3.4")
	appendAt(t, repo, time.Now(), models.EventHoneypotTriggered, "1.2.3.4")

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}

	if err := repo.RotateIfNeeded(ctx); err != nil {
		t.Fatalf("First rotation failed: %v", err)
	}
	if err := repo.RotateIfNeeded(ctx); err != nil {
		t.Fatalf("Second rotation failed: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("Expected log to be byte-identical after rotations under threshold")
	}
}

func TestEventLogConcurrentAppends(t *testing.T) {
	repo, _ := setupTestLog(t, 1024*1024, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := models.NewLogEvent(models.EventEmailSent, "1.2.3.4", "Mozilla/5.0", map[string]any{"n": 1})
			if err := repo.Append(context.Background(), event); err != nil {
				t.Errorf("Failed to append: %v", err)
			}
		}()
	}
	wg.Wait()

	count, err := repo.CountEventsInWindow(context.Background(), "1.2.3.4", models.RateLimitedEvents, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 50 {
		t.Errorf("Expected 50 intact lines, got %d", count)
	}
}

func TestEventLogReset(t *testing.T) {
	repo, path := setupTestLog(t, 1024*1024, 1000)
	ctx := context.Background()
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	// Nothing to reset yet
	backup, err := repo.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset on missing log failed: %v", err)
	}
	if backup != "" {
		t.Errorf("Expected no backup for missing log, got %s", backup)
	}

	appendAt(t, repo, time.Now(), models.EventEmailSent, "1.2.3.4")
	original, _ := os.ReadFile(path)

	backup, err = repo.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if filepath.Base(backup) != "contact_backup_2026-03-01_12-30-00.log" {
		t.Errorf("Unexpected backup name %s", backup)
	}

	copied, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if !bytes.Equal(original, copied) {
		t.Error("Expected backup to match the original log")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat log: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected truncated log, got %d bytes", info.Size())
	}
}

func TestEventLogHonoursCancelledContext(t *testing.T) {
	repo, _ := setupTestLog(t, 1024, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Append(ctx, models.NewLogEvent(models.EventError, "1.2.3.4", "", nil)); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
