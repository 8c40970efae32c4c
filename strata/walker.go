package strata

import (
	"context"
	"errors"
	"path"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Walker resolves date ranges against a date-partitioned tree.
//
// A walk root holds year directories, which hold month directories and so
// on down to seconds. Files at any depth are dated by their name. Siblings
// are walked concurrently and joined in listing order; the number of
// directory listings in flight is bounded per walk.
type Walker struct {
	archive     Archive
	concurrency int
	logger      zerolog.Logger
}

// NewWalker creates a Walker over the given archive.
func NewWalker(a Archive, opts ...Option) (*Walker, error) {
	if a == nil {
		return nil, errors.New("strata: walker: archive is required")
	}
	cfg := walkerConfig{concurrency: DefaultWalkConcurrency, logger: zerolog.Nop()}
	for _, opt := range opts {
		if err := opt.applyWalker(&cfg); err != nil {
			return nil, err
		}
	}
	return newWalker(a, cfg), nil
}

func newWalker(a Archive, cfg walkerConfig) *Walker {
	return &Walker{archive: a, concurrency: cfg.concurrency, logger: cfg.logger}
}

// query carries the per-walk constants down the recursion.
type query struct {
	start, end time.Time
	collapse   bool
	sem        *semaphore.Weighted
}

// node is the aggregate of one subtree.
type node struct {
	paths       []string
	numFiles    int
	collapsible bool
}

// Walk returns the files under root whose dates fall in [start, end] at
// their own depth.
//
// When collapse is set, a directory whose every entry matched is reported
// as its own path; NumFiles still counts every file beneath it. A missing
// or unreadable root yields an empty, non-collapsed result. Errors in a
// branch empty that branch and mark its parent non-collapsible without
// affecting siblings. Canceling ctx fails every pending listing.
func (w *Walker) Walk(ctx context.Context, root string, start, end time.Time, collapse bool) PathResult {
	q := query{
		start:    start,
		end:      end.In(start.Location()),
		collapse: collapse,
		sem:      semaphore.NewWeighted(int64(w.concurrency)),
	}
	origin := time.Date(0, time.January, 1, 0, 0, 0, 0, start.Location())

	n, err := w.walk(ctx, root, q, origin, 0)
	if err != nil {
		w.logger.Debug().Err(err).Str("root", root).Msg("walk root unavailable")
		return PathResult{}
	}
	w.logger.Debug().
		Str("root", root).
		Int("num_files", n.numFiles).
		Int("num_paths", len(n.paths)).
		Bool("collapsed", n.collapsible).
		Msg("walked")
	return PathResult{Paths: n.paths, NumFiles: n.numFiles, Collapsed: n.collapsible}
}

func (w *Walker) walk(ctx context.Context, dir string, q query, date time.Time, depth int) (node, error) {
	entries, err := w.readDir(ctx, dir, q.sem)
	if err != nil {
		return node{}, err
	}

	var dirStart, dirEnd time.Time
	if depth <= maxDepth {
		dirStart = Truncate(q.start, Granularity(depth))
		dirEnd = Truncate(q.end, Granularity(depth))
	}

	canCollapse := true
	slots := make([]*node, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		p := path.Join(dir, e.Name)
		switch e.Kind {
		case KindFile:
			if q.matches(p) {
				slots[i] = &node{paths: []string{p}, numFiles: 1, collapsible: true}
			} else {
				canCollapse = false
			}
		case KindDir:
			sub, ok := descendDate(date, e.Name, depth)
			if !ok {
				canCollapse = false
				continue
			}
			if sub.Before(dirStart) || sub.After(dirEnd) {
				canCollapse = false
				continue
			}
			g.Go(func() error {
				n, err := w.walk(ctx, p, q, sub, depth+1)
				if err != nil {
					w.logger.Debug().Err(err).Str("dir", p).Msg("branch skipped")
					n = node{}
				}
				slots[i] = &n
				return nil
			})
		default:
			canCollapse = false
		}
	}
	_ = g.Wait()

	agg := node{collapsible: canCollapse}
	for _, n := range slots {
		if n == nil {
			continue
		}
		agg.paths = append(agg.paths, n.paths...)
		agg.numFiles += n.numFiles
		agg.collapsible = agg.collapsible && n.collapsible
	}
	if q.collapse && agg.collapsible {
		agg.paths = []string{dir}
	}
	return agg, nil
}

func (w *Walker) readDir(ctx context.Context, dir string, sem *semaphore.Weighted) ([]Entry, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)
	return w.archive.ReadDir(ctx, dir)
}

// matches reports whether the file at p is dated inside the query range
// truncated to the file's own depth, inclusive at both ends. Names are
// matched in rooted form so a bare date name still has a prefix.
func (q query) matches(p string) bool {
	t, depth, ok := fileDate("/"+p, q.start.Location())
	if !ok {
		return false
	}
	return !t.Before(Truncate(q.start, depth)) && !t.After(Truncate(q.end, depth))
}

// descendDate combines a directory name at depth with the date accumulated
// from its ancestors. It reports false for non-numeric names, values outside
// the calendar and depths beyond seconds.
func descendDate(date time.Time, name string, depth int) (time.Time, bool) {
	if depth > maxDepth || !isDigits(name) {
		return time.Time{}, false
	}
	v, err := strconv.Atoi(name)
	if err != nil {
		return time.Time{}, false
	}
	return withComponent(date, Granularity(depth), v)
}
