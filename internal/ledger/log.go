// internal/ledger/log.go
package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log is an append-only sequence of encoded lines. Replay hands every
// line to fn in append order, numbered from 1; it stops at the first
// error fn returns.
type Log interface {
	Append(ctx context.Context, line string) error
	Replay(ctx context.Context, fn func(lineNo int, line string) error) error
}

// FileLog keeps one record per line in a plain text file.
type FileLog struct {
	path string
	mu   sync.Mutex
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

func (f *FileLog) Path() string { return f.path }

func (f *FileLog) Append(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("append %s: line contains a newline", f.path)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	if _, err := file.WriteString(line + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("append %s: %w", f.path, err)
	}
	return file.Close()
}

// Replay reads the file from the start. A file that does not exist yet is
// an empty log. Blank lines are skipped but still counted.
func (f *FileLog) Replay(ctx context.Context, fn func(lineNo int, line string) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	return nil
}

// MemoryLog keeps lines in memory. Nothing survives a restart.
type MemoryLog struct {
	mu    sync.Mutex
	lines []string
}

func NewMemoryLog(lines ...string) *MemoryLog {
	return &MemoryLog{lines: append([]string(nil), lines...)}
}

func (m *MemoryLog) Append(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("append: line contains a newline")
	}
	m.mu.Lock()
	m.lines = append(m.lines, line)
	m.mu.Unlock()
	return nil
}

func (m *MemoryLog) Replay(ctx context.Context, fn func(lineNo int, line string) error) error {
	m.mu.Lock()
	lines := append([]string(nil), m.lines...)
	m.mu.Unlock()

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(i+1, line); err != nil {
			return err
		}
	}
	return nil
}

// Lines returns a copy of every appended line.
func (m *MemoryLog) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}
