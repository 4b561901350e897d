package repo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/miradorstack/wpdiag/internal/models"
)

// LogTailer reads a bounded tail of the PHP/WordPress error log.
type LogTailer struct {
	maxLines int
	maxBytes int64
}

// NewLogTailer constructs a tailer that returns at most maxLines lines drawn from the last
// maxBytes bytes of the file.
func NewLogTailer(maxLines int, maxBytes int64) *LogTailer {
	if maxLines <= 0 {
		maxLines = 1000
	}
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &LogTailer{maxLines: maxLines, maxBytes: maxBytes}
}

// Tail reads the end of the file at path. Failures are reported in LogFacts.Read rather
// than returned, so a missing or unreadable log degrades only the errors section.
func (t *LogTailer) Tail(ctx context.Context, path string) *models.LogFacts {
	facts := &models.LogFacts{Source: path}
	if path == "" {
		facts.Read = models.ProbeFailure(fmt.Errorf("error log path not configured"))
		return facts
	}
	start := time.Now()
	lines, err := t.readTail(ctx, path)
	if err != nil {
		facts.Read = models.ProbeFailure(err)
		return facts
	}
	facts.Lines = lines
	facts.Read = models.ProbeSucceeded(0, float64(time.Since(start).Microseconds())/1000)
	return facts
}

func (t *LogTailer) readTail(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat error log: %w", err)
	}
	offset := info.Size() - t.maxBytes
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek error log: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(f, t.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read error log: %w", err)
	}
	if offset > 0 {
		// Drop the partial line cut by the byte window.
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		} else {
			data = nil
		}
	}

	lines := make([]string, 0, t.maxLines)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), int(t.maxBytes)+1)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan error log: %w", err)
	}
	if len(lines) > t.maxLines {
		lines = lines[len(lines)-t.maxLines:]
	}
	return lines, nil
}
