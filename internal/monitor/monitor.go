// Package monitor turns a process listing into identified, filtered and
// ordered rows. Both the one-shot ps command and the watch dashboard read
// their data through it.
package monitor

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/identify"
	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/proclist"
	"github.com/gobwas/glob"
)

// Identifier is the part of identify.Engine the monitor needs.
type Identifier interface {
	IdentifyBatch(ctx context.Context, queries []identify.ProcessQuery) map[int]identify.IdentifiedProcess
	ClearCache()
	CacheStats() identify.CacheStats
}

// Row is one identified process.
type Row struct {
	PID      int                        `json:"pid"`
	Command  string                     `json:"command"`
	Identity identify.IdentifiedProcess `json:"identity"`
}

// Snapshot is the result of one refresh.
type Snapshot struct {
	Rows    []Row               `json:"rows"`
	Total   int                 `json:"total"`
	Stats   identify.CacheStats `json:"stats"`
	TakenAt time.Time           `json:"taken_at"`
	Elapsed time.Duration       `json:"elapsed"`
}

// Filter selects which rows a snapshot keeps.
type Filter struct {
	// ShowAll keeps system processes too.
	ShowAll bool
	// Categories, when non-empty, keeps only these categories and
	// overrides ShowAll.
	Categories []identify.Category
	// Name, when set, must match the display label.
	Name glob.Glob
}

// CompileName compiles a label pattern such as "next:*" or "postgres*".
// An empty pattern yields a nil matcher that keeps everything.
func CompileName(pattern string) (glob.Glob, error) {
	if pattern == "" {
		return nil, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.NewValidationError("invalid name pattern").
			WithField("name").
			WithValue(pattern).
			WithCause(err)
	}
	return g, nil
}

// Keep reports whether an identified process passes the filter.
func (f Filter) Keep(p identify.IdentifiedProcess) bool {
	if f.Name != nil && !f.Name.Match(p.DisplayName) {
		return false
	}
	if len(f.Categories) > 0 {
		return slices.Contains(f.Categories, p.Category)
	}
	return f.ShowAll || p.Category != identify.CategorySystem
}

// Monitor takes identified snapshots.
type Monitor struct {
	lister proclist.Lister
	engine Identifier
	logger *logging.Logger
	now    func() time.Time
}

// New creates a Monitor.
func New(lister proclist.Lister, engine Identifier, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Monitor{
		lister: lister,
		engine: engine,
		logger: logger.WithComponent("monitor"),
		now:    time.Now,
	}
}

// Snapshot lists the running processes, identifies them in one batch and
// returns the rows that pass filter, ordered by category display order,
// then label, then pid.
func (m *Monitor) Snapshot(ctx context.Context, filter Filter) (Snapshot, error) {
	start := m.now()

	records, err := m.lister.List(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "list processes")
	}

	queries := make([]identify.ProcessQuery, 0, len(records))
	for _, r := range records {
		queries = append(queries, identify.ProcessQuery{PID: r.PID, Command: r.Command, Port: r.Port})
	}
	identified := m.engine.IdentifyBatch(ctx, queries)

	rows := make([]Row, 0, len(records))
	for _, r := range records {
		p, ok := identified[r.PID]
		if !ok || !filter.Keep(p) {
			continue
		}
		rows = append(rows, Row{PID: r.PID, Command: r.Command, Identity: p})
	}
	SortRows(rows)

	end := m.now()
	snap := Snapshot{
		Rows:    rows,
		Total:   len(records),
		Stats:   m.engine.CacheStats(),
		TakenAt: end,
		Elapsed: end.Sub(start),
	}
	m.logger.Debug("snapshot taken",
		"processes", snap.Total,
		"rows", len(rows),
		"duration_ms", snap.Elapsed.Milliseconds(),
	)
	return snap, nil
}

// ClearCache drops every cached identification and resolver result.
func (m *Monitor) ClearCache() {
	m.engine.ClearCache()
	m.logger.Info("caches cleared")
}

var categoryRank = func() map[identify.Category]int {
	rank := make(map[identify.Category]int)
	for i, c := range identify.Categories() {
		rank[c] = i
	}
	return rank
}()

// SortRows orders rows by category display order, then label, then pid.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Identity, rows[j].Identity
		if ra, rb := categoryRank[a.Category], categoryRank[b.Category]; ra != rb {
			return ra < rb
		}
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return rows[i].PID < rows[j].PID
	})
}
