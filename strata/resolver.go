package strata

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Resolver resolves batches of descriptors against one archive.
//
// A Resolver holds only immutable configuration and is safe for concurrent
// use. Within one batch, descriptors are resolved sequentially.
type Resolver struct {
	archive  Archive
	cfg      Config
	strategy Strategy
	walker   *Walker
	logger   zerolog.Logger
}

// NewResolver creates a Resolver over the given archive and configuration.
func NewResolver(a Archive, cfg Config, opts ...Option) (*Resolver, error) {
	if a == nil {
		return nil, errors.New("strata: resolver: archive is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := resolverConfig{
		walker:   walkerConfig{concurrency: DefaultWalkConcurrency, logger: zerolog.Nop()},
		strategy: StrategyWalk,
	}
	for _, opt := range opts {
		if err := opt.applyResolver(&rc); err != nil {
			return nil, err
		}
	}

	return &Resolver{
		archive:  a,
		cfg:      cfg,
		strategy: rc.strategy,
		walker:   newWalker(a, rc.walker),
		logger:   rc.walker.logger,
	}, nil
}

// Config returns the resolver's configuration.
func (r *Resolver) Config() Config { return r.cfg }

// Resolve resolves every descriptor in order and aggregates their paths and
// file counts.
//
// Resolution is best effort: a descriptor that fails contributes nothing to
// the aggregate and the batch continues. Each failure is recorded in the
// descriptor's status. Absent paths are never failures; they contribute
// zero files.
func (r *Resolver) Resolve(ctx context.Context, descriptors []Descriptor, collapse bool) BatchResult {
	batch := BatchResult{BatchID: uuid.NewString()}
	logger := r.logger.With().Str("batch_id", batch.BatchID).Logger()

	for i, d := range descriptors {
		d = d.clone()
		r.cfg.fillDefaults(&d)
		root := r.cfg.LocationRoot(d.Location)
		batch.Root = root

		status := DescriptorStatus{Index: i}
		res, err := r.resolve(ctx, root, d, collapse, logger)
		if err != nil {
			status.Skip = err
			status.Reason = err.Error()
			logger.Warn().Err(err).Int("index", i).Str("dataset", d.String()).Msg("descriptor skipped")
		} else {
			status.Result = res
			batch.Paths = append(batch.Paths, res.Paths...)
			batch.NumFiles += res.NumFiles
		}
		batch.Statuses = append(batch.Statuses, status)
	}

	logger.Info().
		Int("descriptors", len(descriptors)).
		Int("num_files", batch.NumFiles).
		Int("num_paths", len(batch.Paths)).
		Msg("batch resolved")
	return batch
}

// ResolveOne resolves a single descriptor, reporting failure explicitly.
func (r *Resolver) ResolveOne(ctx context.Context, d Descriptor, collapse bool) (PathResult, error) {
	d = d.clone()
	r.cfg.fillDefaults(&d)
	return r.resolve(ctx, r.cfg.LocationRoot(d.Location), d, collapse, r.logger)
}

func (r *Resolver) resolve(ctx context.Context, root string, d Descriptor, collapse bool, logger zerolog.Logger) (PathResult, error) {
	if err := ctx.Err(); err != nil {
		return PathResult{}, err
	}

	switch d.Family() {
	case FamilyDownscaling:
		return existing(ctx, r.archive, downscalingPaths(root, d)), nil
	case FamilyClimatology:
		candidates, err := r.cfg.climatologyPaths(root, d)
		if err != nil {
			return PathResult{}, err
		}
		return existing(ctx, r.archive, candidates), nil
	case FamilyStandard:
		return r.resolveStandard(ctx, root, d, collapse, logger)
	default:
		return PathResult{}, fmt.Errorf("strata: resolve %s: missing datatype: %w", d, ErrInvalidDescriptor)
	}
}

func (r *Resolver) resolveStandard(ctx context.Context, root string, d Descriptor, collapse bool, logger zerolog.Logger) (PathResult, error) {
	dir := r.cfg.DatasetDir(root, d)

	var parts *DateParts
	if d.Dated() && r.strategy == StrategyConstruct {
		p, err := BuildPaths(d)
		if err != nil {
			return PathResult{}, err
		}
		parts = &p
	}

	var res PathResult
	walks, collapsedWalks := 0, 0
	for _, tag := range d.Files {
		if d.Datatype == "ignition_probability" && tag == "metadata" {
			files, err := r.listFiles(ctx, path.Join(dir, tag))
			if err != nil {
				return PathResult{}, err
			}
			res.Paths = append(res.Paths, files...)
			res.NumFiles += len(files)
			continue
		}

		typeDir := path.Join(dir, tag)
		ft, known := r.cfg.FileTypes[tag]
		walkable := d.Range != nil && (!known || ft.IsDated())

		switch {
		case walkable && (r.strategy == StrategyWalk || !known || parts == nil):
			logger.Debug().Str("dir", typeDir).Str("strategy", StrategyWalk.String()).Msg("resolving file type")
			pr := r.walker.Walk(ctx, typeDir, d.Range.Start, d.Range.End, collapse)
			res.Paths = append(res.Paths, pr.Paths...)
			res.NumFiles += pr.NumFiles
			walks++
			if pr.Collapsed {
				collapsedWalks++
			}
		case !known:
			return PathResult{}, fmt.Errorf("strata: resolve %s: file type %q: %w", d, tag, ErrUnknownFileType)
		default:
			candidateParts := parts
			if !ft.IsDated() {
				candidateParts = nil
			}
			logger.Debug().Str("dir", typeDir).Str("strategy", StrategyConstruct.String()).Msg("resolving file type")
			for _, p := range r.cfg.CandidatePaths(dir, d, tag, ft, candidateParts) {
				if n := CountFiles(ctx, r.archive, p); n > 0 {
					res.Paths = append(res.Paths, p)
					res.NumFiles += n
				}
			}
		}
	}
	res.Collapsed = walks > 0 && walks == collapsedWalks
	return res, nil
}

// EmptyRaster returns the placeholder raster for the location and extent of
// d once defaults are applied.
func (r *Resolver) EmptyRaster(d Descriptor) string {
	d = d.clone()
	r.cfg.fillDefaults(&d)
	return r.cfg.EmptyRaster(d.Location, d.Extent)
}

// listFiles returns the regular files directly inside dir.
func (r *Resolver) listFiles(ctx context.Context, dir string) ([]string, error) {
	entries, err := r.archive.ReadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Kind == KindFile {
			out = append(out, path.Join(dir, e.Name))
		}
	}
	return out, nil
}
