package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterCountsConcurrentWork(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := NewReporter(logger, nil, false)

	r.Begin("annotate files", 50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Worked(1)
		}()
	}
	wg.Wait()
	r.Done()
	r.Done()

	worked, total := r.Snapshot()
	assert.Equal(t, 50, worked)
	assert.Equal(t, 50, total)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "finished", entry.Message)
	assert.Equal(t, 50, entry.Data["worked"])
	assert.Len(t, hook.AllEntries(), 1, "done is reported once")
}

func TestReporterInteractiveStatusLine(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var buf bytes.Buffer
	r := NewReporter(logger, &buf, true)

	r.Begin("annotate main.go", 2)
	r.Worked(1)
	r.Done()

	assert.Equal(t, "\rannotate main.go: 0/2\rannotate main.go: 1/2\n", buf.String())
}
