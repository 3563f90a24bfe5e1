package repositories

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blogem/contact-guard/models"
)

// maxLineSize bounds a single event line when scanning the log
const maxLineSize = 1024 * 1024

// ErrLogUnavailable is returned when the event log exists but cannot be read
var ErrLogUnavailable = errors.New("event log unavailable")

// ErrRotationFailed is returned by Append when the event was written but the
// log could not be compacted afterwards
var ErrRotationFailed = errors.New("event log rotation failed")

// EventLogRepository persists security events as an append-only JSON-lines file.
// It doubles as the rate limiter's history, so rotation also bounds that history.
type EventLogRepository interface {
	Append(ctx context.Context, event *models.LogEvent) error
	RotateIfNeeded(ctx context.Context) error
	CountEventsInWindow(ctx context.Context, ip string, types []models.EventType, since time.Time) (int, error)
	Recent(ctx context.Context, limit int) ([]models.LogEvent, error)
	Reset(ctx context.Context) (string, error)
}

// fileEventLog implements EventLogRepository on a flat file
type fileEventLog struct {
	path      string
	maxSize   int64
	keepLines int
	now       func() time.Time

	// mu serializes appends, rotation, reset and scans
	mu sync.Mutex
}

// NewEventLogRepository creates an event log writing to path. The log is rotated
// down to the newest keepLines lines whenever it grows past maxSize bytes.
func NewEventLogRepository(path string, maxSize int64, keepLines int) EventLogRepository {
	return &fileEventLog{
		path:      path,
		maxSize:   maxSize,
		keepLines: keepLines,
		now:       time.Now,
	}
}

// Append writes one event line, stamping the timestamp if unset, then rotates.
// An ErrRotationFailed result means the event itself was stored.
func (r *fileEventLog) Append(ctx context.Context, event *models.LogEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = r.now().UTC()
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append event: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close event log: %w", err)
	}

	if err := r.rotateLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrRotationFailed, err)
	}
	return nil
}

// RotateIfNeeded compacts the log when it exceeds the configured size
func (r *fileEventLog) RotateIfNeeded(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rotateLocked()
}

func (r *fileEventLog) rotateLocked() error {
	info, err := os.Stat(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat event log: %w", err)
	}
	if info.Size() <= r.maxSize {
		return nil
	}

	content, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}

	lines := bytes.SplitAfter(content, []byte("\n"))
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}
	if len(lines) > r.keepLines {
		lines = lines[len(lines)-r.keepLines:]
	}

	// Drop further old lines if the kept tail alone is still over the limit
	size := 0
	for _, l := range lines {
		size += len(l)
	}
	for len(lines) > 1 && int64(size) > r.maxSize {
		size -= len(lines[0])
		lines = lines[1:]
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".rotate-*")
	if err != nil {
		return fmt.Errorf("failed to create rotation file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(bytes.Join(lines, nil)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rotation file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close rotation file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set rotation file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace event log: %w", err)
	}

	return nil
}

// CountEventsInWindow counts events for ip whose type is in types and whose
// timestamp is strictly after since. It scans the whole file.
func (r *fileEventLog) CountEventsInWindow(ctx context.Context, ip string, types []models.EventType, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	wanted := make(map[models.EventType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	err := r.scanLocked(func(event models.LogEvent) {
		if event.IPAddress != ip || !wanted[event.Type] {
			return
		}
		if event.Timestamp.After(since) {
			count++
		}
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Recent returns up to limit of the newest events, oldest first
func (r *fileEventLog) Recent(ctx context.Context, limit int) ([]models.LogEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var events []models.LogEvent
	err := r.scanLocked(func(event models.LogEvent) {
		events = append(events, event)
		if limit > 0 && len(events) > limit {
			events = events[1:]
		}
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Reset copies the log to a timestamped backup next to it and truncates it.
// It returns the backup path, or "" when there was nothing to reset.
func (r *fileEventLog) Reset(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	src, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open event log: %w", err)
	}
	defer src.Close()

	name := "contact_backup_" + r.now().Format("2006-01-02_15-04-05") + ".log"
	backupPath := filepath.Join(filepath.Dir(r.path), name)

	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to copy event log: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup: %w", err)
	}

	if err := os.Truncate(r.path, 0); err != nil {
		return "", fmt.Errorf("failed to truncate event log: %w", err)
	}

	return backupPath, nil
}

// scanLocked decodes every well-formed line. Malformed lines and lines longer
// than maxLineSize are skipped; only I/O failures abort the scan.
func (r *fileEventLog) scanLocked(fn func(models.LogEvent)) error {
	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogUnavailable, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 64*1024)
	var line []byte
	oversized := false
	for {
		chunk, err := reader.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > maxLineSize {
				oversized = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if !oversized {
			decodeLine(line, fn)
		}
		line = line[:0]
		oversized = false

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLogUnavailable, err)
		}
	}
}

func decodeLine(line []byte, fn func(models.LogEvent)) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var event models.LogEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return
	}
	fn(event)
}
