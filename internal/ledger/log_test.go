package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replayed struct {
	n    int
	line string
}

func collect(t *testing.T, l Log) []replayed {
	t.Helper()
	var out []replayed
	err := l.Replay(context.Background(), func(n int, line string) error {
		out = append(out, replayed{n, line})
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestFileLog_AppendReplay(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "cash.txt")
	l := NewFileLog(path)

	assert.Empty(t, collect(t, l), "a missing file is an empty log")

	require.NoError(t, l.Append(ctx, "first"))
	require.NoError(t, l.Append(ctx, "second"))
	assert.Equal(t, []replayed{{1, "first"}, {2, "second"}}, collect(t, l))

	err := l.Append(ctx, "broken\nline")
	assert.Error(t, err)
	assert.Len(t, collect(t, l), 2)
}

func TestFileLog_BlankLinesKeepNumbering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n\n  \r\nb\r\n"), 0o644))

	assert.Equal(t, []replayed{{1, "a"}, {4, "b"}}, collect(t, NewFileLog(path)))
}

func TestFileLog_ReplayStopsOnError(t *testing.T) {
	ctx := context.Background()
	l := NewFileLog(filepath.Join(t.TempDir(), "cash.txt"))
	for _, line := range []string{"a", "b", "c"} {
		require.NoError(t, l.Append(ctx, line))
	}

	stop := errors.New("stop")
	seen := 0
	err := l.Replay(ctx, func(n int, line string) error {
		seen++
		if n == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
}

func TestMemoryLog(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLog("seed", "")
	require.NoError(t, l.Append(ctx, "next"))
	assert.Error(t, l.Append(ctx, "a\rb"))

	assert.Equal(t, []replayed{{1, "seed"}, {3, "next"}}, collect(t, l))
	assert.Equal(t, []string{"seed", "", "next"}, l.Lines())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, l.Append(cancelled, "late"), context.Canceled)
}
