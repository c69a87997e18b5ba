package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "annotate.log")

	l, err := New(Config{Level: "debug", OutputFile: path, JSONFormat: true})
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	l.WithField("file", "main.go").Info("annotated")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"annotated"`)
	assert.Contains(t, string(data), `"file":"main.go"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}
