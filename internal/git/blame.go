package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// BlameProvider retrieves per-line revision history with git blame
type BlameProvider struct {
	binary  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewBlameProvider creates a provider. rateLimit is blame calls per second, 0 = unlimited.
func NewBlameProvider(binary string, rateLimit float64, timeout time.Duration, logger *logrus.Logger) *BlameProvider {
	if binary == "" {
		binary = "git"
	}
	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
	}
	return &BlameProvider{
		binary:  binary,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// RevisionInfo blames the working-tree version of file.
// The fingerprint hashes the full porcelain output, which includes every
// line's revision and content, so it changes whenever either does.
func (p *BlameProvider) RevisionInfo(ctx context.Context, file string) (*models.RevisionInfo, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, classify(ctx, err, err.Error())
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := runRaw(ctx, p.binary, filepath.Dir(abs), "blame", "--line-porcelain", "--", filepath.Base(abs))
	if err != nil {
		return nil, err
	}

	lines, err := ParsePorcelain(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parse blame output for %s: %w", file, err)
	}

	p.logger.WithFields(logrus.Fields{
		"file":     abs,
		"lines":    len(lines),
		"duration": time.Since(start),
	}).Debug("blame complete")

	return &models.RevisionInfo{
		Fingerprint: Fingerprint(out),
		Lines:       lines,
	}, nil
}

// Fingerprint hashes raw provider output into an opaque cache version id
func Fingerprint(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// ParsePorcelain parses `git blame --line-porcelain` output.
//
// Every source line produces a header block followed by a TAB-prefixed
// content line:
//
//	<sha> <orig-line> <final-line> [<group-size>]
//	author <name>
//	author-time <unix seconds>
//	...
//	filename <path>
//	\t<content>
func ParsePorcelain(r io.Reader) ([]*models.LineRevision, error) {
	br := bufio.NewReader(r)
	var lines []*models.LineRevision
	var cur *models.LineRevision

	for {
		raw, err := br.ReadString('\n')
		if raw == "" && err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		line := strings.TrimSuffix(raw, "\n")

		switch {
		case strings.HasPrefix(line, "\t"):
			if cur == nil {
				return nil, fmt.Errorf("content line %d without header", len(lines)+1)
			}
			lines = append(lines, cur)
			cur = nil
		case cur == nil:
			fields := strings.Fields(line)
			if len(fields) < 3 || !isHexID(fields[0]) {
				return nil, fmt.Errorf("malformed blame header %q", line)
			}
			cur = &models.LineRevision{Revision: fields[0]}
		case strings.HasPrefix(line, "author "):
			cur.Author = strings.TrimPrefix(line, "author ")
		case strings.HasPrefix(line, "author-time "):
			secs, perr := strconv.ParseInt(strings.TrimPrefix(line, "author-time "), 10, 64)
			if perr != nil {
				return nil, fmt.Errorf("bad author-time in %q: %w", line, perr)
			}
			cur.Timestamp = secs * 1000
		}

		if err == io.EOF {
			break
		}
	}

	if cur != nil {
		return nil, fmt.Errorf("truncated blame output after %d lines", len(lines))
	}
	return lines, nil
}

func isHexID(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// FileSource opens working-tree files and reports their declared encoding
type FileSource struct {
	binary string
	logger *logrus.Logger
}

// NewFileSource creates a FileSource that asks git for encodings
func NewFileSource(binary string, logger *logrus.Logger) *FileSource {
	if binary == "" {
		binary = "git"
	}
	return &FileSource{binary: binary, logger: logger}
}

// Open opens the current contents of file
func (f *FileSource) Open(file string) (io.ReadCloser, error) {
	return os.Open(file)
}

// Charset returns the file's working-tree-encoding attribute, "" when unset
func (f *FileSource) Charset(ctx context.Context, file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		return ""
	}
	enc, err := WorkingTreeEncoding(ctx, f.binary, abs)
	if err != nil {
		f.logger.WithError(err).WithField("file", abs).Debug("charset lookup failed, using default")
		return ""
	}
	return enc
}
