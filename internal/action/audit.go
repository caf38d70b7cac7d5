package action

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ark/internal/logger"
	"ark/pkg/models"
)

const defaultMaxSizeBytes = 100 * 1024 * 1024

// AuditLog is a size-rotated JSONL audit trail of every action intent
// dispatched, ported from original_source/agent/src/audit.rs's
// AuditLogger: append-only, one JSON object per line, renamed-and-reopened
// on rotation rather than Rust's BufWriter-swap-under-a-lock.
type AuditLog struct {
	mu          sync.Mutex
	path        string
	maxSize     int64
	currentSize int64
	file        *os.File
	writer      *bufio.Writer
}

// OpenAuditLog opens (creating if needed) the audit log at path, rotating
// at maxSizeBytes. A zero maxSizeBytes uses the 100MiB default.
func OpenAuditLog(path string, maxSizeBytes int64) (*AuditLog, error) {
	if maxSizeBytes <= 0 {
		maxSizeBytes = defaultMaxSizeBytes
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &AuditLog{
		path:        path,
		maxSize:     maxSizeBytes,
		currentSize: info.Size(),
		file:        f,
		writer:      bufio.NewWriter(f),
	}, nil
}

// Record appends one entry, rotating first if the new line would exceed
// maxSize.
func (a *AuditLog) Record(entry models.AuditEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentSize+int64(len(line)) > a.maxSize {
		if err := a.rotate(); err != nil {
			return err
		}
	}

	if _, err := a.writer.Write(line); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	if err := a.writer.Flush(); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	a.currentSize += int64(len(line))
	return nil
}

func (a *AuditLog) rotate() error {
	if err := a.writer.Flush(); err != nil {
		return err
	}
	if err := a.file.Close(); err != nil {
		return err
	}

	rotated := fmt.Sprintf("%s.%s", a.path, time.Now().UTC().Format("20060102_150405"))
	if err := os.Rename(a.path, rotated); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	a.file = f
	a.writer = bufio.NewWriter(f)
	a.currentSize = 0
	logger.Infof("action: audit log rotated to %s", rotated)
	return nil
}

// Close flushes and closes the underlying file.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writer.Flush(); err != nil {
		return err
	}
	return a.file.Close()
}
