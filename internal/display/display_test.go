package display

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/crisk-annotate/internal/logging"
	"github.com/rohankatakam/crisk-annotate/internal/models"
	"github.com/rohankatakam/crisk-annotate/internal/output"
	"github.com/rohankatakam/crisk-annotate/internal/storage"
)

func TestExecutorRunsTasksOnOneGoroutine(t *testing.T) {
	e := NewExecutor(logging.Discard())
	defer e.Close()

	var (
		mu      sync.Mutex
		running int
		overlap bool
		count   int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Sync(context.Background(), func() {
				mu.Lock()
				running++
				if running > 1 {
					overlap = true
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				running--
				count++
				mu.Unlock()
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
	assert.Equal(t, 10, count)
}

func TestExecutorRecoversPanics(t *testing.T) {
	e := NewExecutor(logging.Discard())
	defer e.Close()

	err := e.Sync(context.Background(), func() { panic("boom") })
	assert.ErrorContains(t, err, "boom")

	ran := false
	require.NoError(t, e.Sync(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestExecutorClosed(t *testing.T) {
	e := NewExecutor(logging.Discard())
	e.Close()
	e.Close()

	err := e.Sync(context.Background(), func() { t.Fatal("must not run") })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestExecutorContextCancelled(t *testing.T) {
	e := NewExecutor(logging.Discard())
	defer e.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	go e.Sync(context.Background(), func() {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.Sync(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

type stringFiles map[string]string

func (s stringFiles) Open(file string) (io.ReadCloser, error) {
	text, ok := s[file]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

func (s stringFiles) Charset(ctx context.Context, file string) string { return "" }

func TestTerminalFindEditor(t *testing.T) {
	term := NewTerminal(io.Discard, stringFiles{}, storage.NewMemoryStore(), output.NewFormatter("table", false), logging.Discard())

	_, ok := term.FindEditor("a.go", false)
	assert.False(t, ok, "no editor and not asked to open one")

	ed, ok := term.FindEditor("a.go", true)
	require.True(t, ok)

	again, ok := term.FindEditor("a.go", false)
	require.True(t, ok)
	assert.Same(t, ed, again)

	term.Open("b.go")
	_, ok = term.FindEditor("b.go", false)
	assert.True(t, ok)

	assert.Equal(t, []string{"a.go", "b.go"}, term.OpenFiles())
}

func TestTerminalEditorRenders(t *testing.T) {
	ctx := context.Background()
	markers := storage.NewMemoryStore()
	require.NoError(t, markers.Update(ctx, "a.go", func(tx storage.MarkerTx) error {
		return tx.Create(models.MarkerSpec{Kind: models.RankMarker(0), Start: 2, End: 4, Message: "hot"})
	}))

	var buf bytes.Buffer
	term := NewTerminal(&buf, stringFiles{"a.go": "a\nb\n"}, markers, output.NewFormatter("csv", false), logging.Discard())

	ed, ok := term.FindEditor("a.go", true)
	require.True(t, ok)

	bundle := &models.Bundle{
		File: "a.go",
		Mode: models.ModeTop5,
		Groups: []*models.RevisionGroup{
			{ID: "c0ffee", Author: "alice", Timestamp: 1000, Lines: []int{1, 2, models.EndLine}},
		},
	}
	require.NoError(t, ed.ShowRevisionInformation(bundle))

	out := buf.String()
	assert.Contains(t, out, "2,c0ffee,alice,1970-01-01T00:00:01Z,rev.rank0,hot,b")
}

func TestTerminalEditorMissingFile(t *testing.T) {
	term := NewTerminal(io.Discard, stringFiles{}, storage.NewMemoryStore(), output.NewFormatter("table", false), logging.Discard())
	ed, _ := term.FindEditor("gone.go", true)
	assert.Error(t, ed.ShowRevisionInformation(&models.Bundle{}))
}

func TestColorEnabled(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, ColorEnabled("always", f))
	assert.False(t, ColorEnabled("never", f))
	assert.False(t, ColorEnabled("auto", f), "regular file is not a terminal")
}
