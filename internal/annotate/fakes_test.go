package annotate

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

type fakeProvider struct {
	mu          sync.Mutex
	fingerprint string
	lines       func() []*models.LineRevision
	err         error
	panicWith   interface{}
	calls       int

	// when gate is set every call reports on entered, then waits for gate
	// to close before returning what it read on entry
	gate    chan struct{}
	entered chan struct{}
}

func (p *fakeProvider) RevisionInfo(ctx context.Context, file string) (*models.RevisionInfo, error) {
	p.mu.Lock()
	p.calls++
	fingerprint, lines, err, panicWith, gate := p.fingerprint, p.lines, p.err, p.panicWith, p.gate
	p.mu.Unlock()

	if gate != nil {
		p.entered <- struct{}{}
		<-gate
	}
	if panicWith != nil {
		panic(panicWith)
	}
	if err != nil {
		return nil, err
	}
	if lines == nil {
		return nil, nil
	}
	return &models.RevisionInfo{Fingerprint: fingerprint, Lines: lines()}, nil
}

func (p *fakeProvider) setFingerprint(fp string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fingerprint = fp
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeFiles struct {
	content string
	charset string
	openErr error
	opens   atomic.Int32
}

func (f *fakeFiles) Open(file string) (io.ReadCloser, error) {
	f.opens.Add(1)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func (f *fakeFiles) Charset(ctx context.Context, file string) string {
	return f.charset
}

type fakeEditor struct {
	mu      sync.Mutex
	bundles []*models.Bundle
}

func (e *fakeEditor) ShowRevisionInformation(bundle *models.Bundle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bundles = append(e.bundles, bundle)
	return nil
}

func (e *fakeEditor) shown() []*models.Bundle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*models.Bundle(nil), e.bundles...)
}

type fakeDisplay struct {
	editor  *fakeEditor
	hasOpen bool // whether an editor is already open

	mu      sync.Mutex
	lookups []bool
}

func (d *fakeDisplay) FindEditor(file string, open bool) (Editor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups = append(d.lookups, open)
	if !d.hasOpen && !open {
		return nil, false
	}
	return d.editor, true
}

// inlineDispatcher runs tasks on the caller's goroutine
type inlineDispatcher struct {
	calls atomic.Int32
}

func (d *inlineDispatcher) Sync(ctx context.Context, fn func()) error {
	d.calls.Add(1)
	fn()
	return nil
}

type recordingProgress struct {
	mu     sync.Mutex
	begins []int
	worked int
	done   int
}

func (p *recordingProgress) Begin(name string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begins = append(p.begins, total)
}

func (p *recordingProgress) Worked(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.worked += n
}

func (p *recordingProgress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
}
