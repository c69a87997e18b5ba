package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/crisk-annotate/internal/logging"
)

const shaA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
const shaB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

func porcelainBlock(sha, author string, secs int64, line int, content string) string {
	return strings.Join([]string{
		sha + " " + strconv.Itoa(line) + " " + strconv.Itoa(line) + " 1",
		"author " + author,
		"author-mail <" + strings.ToLower(author) + "@example.com>",
		"author-time " + strconv.FormatInt(secs, 10),
		"author-tz +0000",
		"committer " + author,
		"committer-time " + strconv.FormatInt(secs, 10),
		"summary change",
		"filename main.go",
		"\t" + content,
	}, "\n") + "\n"
}

func TestParsePorcelain(t *testing.T) {
	out := porcelainBlock(shaA, "Alice", 100, 1, "a") +
		porcelainBlock(shaB, "Bob", 200, 2, "b") +
		porcelainBlock(shaA, "Alice", 100, 3, "c")

	lines, err := ParsePorcelain(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, shaA, lines[0].Revision)
	assert.Equal(t, "Alice", lines[0].Author)
	assert.Equal(t, int64(100000), lines[0].Timestamp)
	assert.Equal(t, shaB, lines[1].Revision)
	assert.Equal(t, "Bob", lines[1].Author)
	assert.Equal(t, shaA, lines[2].Revision)
}

func TestParsePorcelainContentStartingWithHeaderWords(t *testing.T) {
	// Content lines are TAB prefixed so they can never be mistaken for headers
	out := porcelainBlock(shaA, "Alice", 1, 1, "author evil")
	lines, err := ParsePorcelain(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Alice", lines[0].Author)
}

func TestParsePorcelainErrors(t *testing.T) {
	_, err := ParsePorcelain(strings.NewReader("garbage line\n"))
	assert.Error(t, err)

	truncated := strings.SplitAfter(porcelainBlock(shaA, "Alice", 1, 1, "x"), "\n")
	_, err = ParsePorcelain(strings.NewReader(strings.Join(truncated[:3], "")))
	assert.Error(t, err)

	lines, err := ParsePorcelain(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestFingerprintChangesWithOutput(t *testing.T) {
	a := Fingerprint([]byte("one"))
	assert.Equal(t, a, Fingerprint([]byte("one")))
	assert.NotEqual(t, a, Fingerprint([]byte("two")))
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	err := classify(ctx, errors.New("exit status 128"), "fatal: not a git repository (or any of the parent directories): .git")
	assert.ErrorIs(t, err, ErrNotVersioned)

	err = classify(ctx, errors.New("exit status 128"), "fatal: no such path 'new.go' in HEAD")
	assert.ErrorIs(t, err, ErrNotVersioned)

	err = classify(ctx, exec.ErrNotFound, "")
	assert.ErrorIs(t, err, ErrUnsupportedBackend)

	err = classify(ctx, errors.New("exit status 128"), "fatal: unable to access 'https://example.com/': Could not resolve host")
	assert.ErrorIs(t, err, ErrBrokenConnection)

	expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
	defer cancel()
	err = classify(expired, errors.New("signal: killed"), "")
	assert.ErrorIs(t, err, ErrBrokenConnection)

	err = classify(ctx, errors.New("exit status 1"), "something odd")
	assert.False(t, IsProviderFailure(err))
}

// initRepo creates a throwaway repository, skipping when git is unavailable
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	gitRun(t, dir, "init", "-q")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	gitRun(t, dir, "config", "user.name", "Test User")
	gitRun(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestBlameProviderOnRealRepo(t *testing.T) {
	dir := initRepo(t)
	file := filepath.Join(dir, "main.go")

	require.NoError(t, os.WriteFile(file, []byte("a\nb\n"), 0644))
	gitRun(t, dir, "add", "main.go")
	gitRun(t, dir, "commit", "-q", "-m", "first")

	provider := NewBlameProvider("git", 0, 10*time.Second, logging.Discard())
	ctx := context.Background()

	info, err := provider.RevisionInfo(ctx, file)
	require.NoError(t, err)
	require.Len(t, info.Lines, 2)
	assert.Equal(t, "Test User", info.Lines[0].Author)
	assert.Equal(t, info.Lines[0].Revision, info.Lines[1].Revision)
	assert.NotEmpty(t, info.Fingerprint)

	// Same history, same fingerprint
	again, err := provider.RevisionInfo(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, info.Fingerprint, again.Fingerprint)

	// Uncommitted edit changes the fingerprint and adds a new revision
	require.NoError(t, os.WriteFile(file, []byte("a\nb\nc\n"), 0644))
	edited, err := provider.RevisionInfo(ctx, file)
	require.NoError(t, err)
	require.Len(t, edited.Lines, 3)
	assert.NotEqual(t, info.Fingerprint, edited.Fingerprint)
	assert.NotEqual(t, edited.Lines[0].Revision, edited.Lines[2].Revision)
}

func TestBlameProviderNotVersioned(t *testing.T) {
	dir := initRepo(t)
	provider := NewBlameProvider("git", 0, 10*time.Second, logging.Discard())
	ctx := context.Background()

	untracked := filepath.Join(dir, "new.go")
	require.NoError(t, os.WriteFile(untracked, []byte("x\n"), 0644))
	// An empty repository has no HEAD either way
	_, err := provider.RevisionInfo(ctx, untracked)
	assert.Error(t, err)

	_, err = provider.RevisionInfo(ctx, filepath.Join(dir, "missing.go"))
	assert.ErrorIs(t, err, ErrNotVersioned)

	outside := filepath.Join(t.TempDir(), "loose.go")
	require.NoError(t, os.WriteFile(outside, []byte("x\n"), 0644))
	_, err = provider.RevisionInfo(ctx, outside)
	assert.ErrorIs(t, err, ErrNotVersioned)
}

func TestBlameProviderMissingBinary(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.go")
	require.NoError(t, os.WriteFile(file, []byte("x\n"), 0644))

	provider := NewBlameProvider("definitely-not-git-binary", 0, 0, logging.Discard())
	_, err := provider.RevisionInfo(context.Background(), file)
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestWorkingTreeEncoding(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitattributes"), []byte("*.txt working-tree-encoding=ISO-8859-1\n"), 0644))
	txt := filepath.Join(dir, "legacy.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x\n"), 0644))
	gofile := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(gofile, []byte("x\n"), 0644))

	src := NewFileSource("git", logging.Discard())
	assert.Equal(t, "ISO-8859-1", src.Charset(context.Background(), txt))
	assert.Equal(t, "", src.Charset(context.Background(), gofile))
}
