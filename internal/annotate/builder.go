package annotate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/crisk-annotate/internal/cache"
	"github.com/rohankatakam/crisk-annotate/internal/errors"
	"github.com/rohankatakam/crisk-annotate/internal/models"
	"github.com/rohankatakam/crisk-annotate/internal/storage"
)

// Result is the outcome of building one file's annotations
type Result struct {
	Bundle      *models.Bundle
	Markers     []Selection // markers actually created, empty on a cache hit
	CacheHit    bool
	Diagnostics []models.Diagnostic
}

// Builder runs the annotation pipeline for one file: fingerprint gate,
// offset mapping, aggregation, marker selection and marker application.
type Builder struct {
	provider    RevisionProvider
	files       FileSource
	highlighter Highlighter
	markers     storage.MarkerStore
	cache       cache.Store
	logger      *logrus.Logger
	now         func() time.Time
}

// NewBuilder creates a builder. highlighter may be nil, in which case
// unchecked mode selects nothing.
func NewBuilder(provider RevisionProvider, files FileSource, highlighter Highlighter, markers storage.MarkerStore, store cache.Store, logger *logrus.Logger) *Builder {
	return &Builder{
		provider:    provider,
		files:       files,
		highlighter: highlighter,
		markers:     markers,
		cache:       store,
		logger:      logger,
		now:         time.Now,
	}
}

// Build annotates file under mode. A nil Result with a nil error means the
// provider had no history for the file.
func (b *Builder) Build(ctx context.Context, file string, mode models.HighlightingMode) (*Result, error) {
	info, err := b.provider.RevisionInfo(ctx, file)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}

	log := b.logger.WithFields(logrus.Fields{
		"file": file,
		"mode": mode,
	})

	entry, found, err := b.cache.Get(ctx, file)
	if err != nil {
		log.WithError(err).Warn("annotation cache read failed, recomputing")
		found = false
	}
	if found && entry.Bundle != nil && entry.Matches(info.Fingerprint, mode) {
		if b.markersIntact(ctx, file, entry.Markers) {
			log.Debug("fingerprint unchanged, reusing cached annotations")
			return &Result{Bundle: entry.Bundle, CacheHit: true}, nil
		}
		log.Debug("marker store out of step with cache, recomputing")
	}

	result, err := b.compute(ctx, file, mode, info)
	if err != nil {
		return nil, err
	}

	err = b.cache.Put(ctx, file, &models.CacheEntry{
		Fingerprint: info.Fingerprint,
		Mode:        mode,
		Bundle:      result.Bundle,
		Markers:     len(result.Markers),
	})
	if err != nil {
		log.WithError(err).Warn("annotation cache write failed")
		result.Diagnostics = append(result.Diagnostics, models.Diagnostic{
			Stage: "cache",
			Err:   errors.CacheError(err, "store annotations"),
		})
	}

	log.WithFields(logrus.Fields{
		"groups":      len(result.Bundle.Groups),
		"markers":     len(result.Markers),
		"diagnostics": len(result.Diagnostics),
	}).Debug("annotations rebuilt")

	return result, nil
}

func (b *Builder) compute(ctx context.Context, file string, mode models.HighlightingMode, info *models.RevisionInfo) (*Result, error) {
	charset := b.files.Charset(ctx, file)

	rc, err := b.files.Open(file)
	if err != nil {
		return nil, errors.FileSystemError(err, "open "+file)
	}
	diags := MapOffsets(rc, charset, info.Lines)
	rc.Close()

	groups, index := Aggregate(info.Lines)
	selected := Select(file, mode, groups, index, info.Lines, b.highlighter)

	applied, applyDiags, err := b.applyMarkers(ctx, file, selected)
	if err != nil {
		return nil, err
	}

	return &Result{
		Bundle: &models.Bundle{
			File:        file,
			Fingerprint: info.Fingerprint,
			Mode:        mode,
			Groups:      groups,
			CreatedAt:   b.now(),
		},
		Markers:     applied,
		Diagnostics: append(diags, applyDiags...),
	}, nil
}

// markersIntact reports whether the marker store still holds the annotation
// markers a cached run applied. The cache can outlive the store (a fresh
// in-memory store, a shared redis cache, a removed database).
func (b *Builder) markersIntact(ctx context.Context, file string, want int) bool {
	markers, err := b.markers.List(ctx, file)
	if err != nil {
		b.logger.WithError(err).WithField("file", file).Debug("marker list failed")
		return false
	}

	kinds := make(map[models.MarkerKind]bool)
	for _, k := range models.AnnotationKinds() {
		kinds[k] = true
	}
	have := 0
	for _, m := range markers {
		if kinds[m.Kind] {
			have++
		}
	}
	return have == want
}

// applyMarkers replaces every annotation marker on file with selected in one
// unit of work. Markers that fail to create are skipped and reported.
func (b *Builder) applyMarkers(ctx context.Context, file string, selected []Selection) ([]Selection, []models.Diagnostic, error) {
	var (
		applied []Selection
		diags   []models.Diagnostic
	)

	err := b.markers.Update(ctx, file, func(tx storage.MarkerTx) error {
		applied, diags = nil, nil

		if err := tx.DeleteKinds(models.AnnotationKinds()...); err != nil {
			return err
		}
		for _, s := range selected {
			if err := tx.Create(s.Marker); err != nil {
				if storage.IsTxAborted(err) {
					return err
				}
				diags = append(diags, models.Diagnostic{Stage: "markers", Line: s.Line, Err: err})
				continue
			}
			applied = append(applied, s)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.StorageError(err, "apply markers to "+file)
	}

	return applied, diags, nil
}
