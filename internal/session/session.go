// Package session owns one working Dataset together with its source path,
// undo/redo history and codec registry. Every mutating operation replaces the
// working Dataset with a new one and records a history snapshot. A Session is
// safe for concurrent use.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/paveg/datafilter/internal/analyzer"
	"github.com/paveg/datafilter/internal/codec"
	"github.com/paveg/datafilter/internal/config"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/filter"
	"github.com/paveg/datafilter/internal/history"
	"github.com/paveg/datafilter/internal/monitoring"
	"github.com/paveg/datafilter/internal/parallel"
	"github.com/paveg/datafilter/internal/sorting"
	"github.com/paveg/datafilter/internal/validation"
	"github.com/paveg/datafilter/internal/value"
)

// Session is a single user's working state.
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	path     string
	data     dataset.Dataset
	savedSum uint64
	saved    bool

	history  *history.Manager
	registry *codec.Registry
	analyzer *analyzer.Analyzer
	metrics  *monitoring.MetricsCollector
	logger   *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithRegistry sets the codec registry used by Load and Save.
func WithRegistry(r *codec.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// WithHistoryCapacity sets the maximum number of undo snapshots.
func WithHistoryCapacity(n int) Option {
	return func(s *Session) { s.history = history.NewManager(n, s.logger) }
}

// WithAnalyzer sets the analyzer used by Stats.
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(s *Session) { s.analyzer = a }
}

// WithMetrics records every operation in c.
func WithMetrics(c *monitoring.MetricsCollector) Option {
	return func(s *Session) { s.metrics = c }
}

// New creates an empty session. Options are applied after the defaults, so
// a logger passed here is also used by the default registry and history.
func New(logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	s := &Session{
		id:     id,
		logger: logger.With(slog.String("component", "session"), slog.String("session", id.String())),
	}
	s.history = history.NewManager(history.DefaultCapacity, s.logger)
	s.registry = codec.NewRegistry(codec.DefaultOptions(), s.logger)
	s.analyzer = analyzer.New()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig creates a session whose registry, history capacity and
// analyzer follow cfg. The collector, if any, is switched on or off per
// cfg.MetricsEnabled and keeps cfg.MetricsMaxRecords operations; a nil
// collector disables metrics.
func NewFromConfig(cfg config.Config, logger *slog.Logger, metrics *monitoring.MetricsCollector) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry, err := cfg.NewRegistry(logger)
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		metrics.SetEnabled(cfg.MetricsEnabled)
		metrics.SetMaxRecords(cfg.MetricsMaxRecords)
	}

	pool := parallel.NewWorkerPool(cfg.Workers).WithThreshold(cfg.ParallelThreshold)
	logger.Debug("analyzer worker pool", slog.Int("workers", pool.Workers()), slog.Int("threshold", cfg.ParallelThreshold))

	return New(logger,
		WithRegistry(registry),
		WithHistoryCapacity(cfg.HistoryCapacity),
		WithAnalyzer(analyzer.New(
			analyzer.WithSampleSize(cfg.SampleValues),
			analyzer.WithWorkerPool(pool),
		)),
		WithMetrics(metrics),
	), nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id.String() }

// Registry returns the codec registry used by the session.
func (s *Session) Registry() *codec.Registry { return s.registry }

// Path returns the path of the last successful load or save.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Data returns a copy of the working Dataset, which is always the history
// snapshot at the cursor.
func (s *Session) Data() dataset.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, _, ok := s.history.Current(); ok {
		return d
	}
	return s.data.Clone()
}

// Len returns the number of records in the working Dataset.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Dirty reports whether the working Dataset differs from what was last
// loaded or saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return len(s.data) > 0
	}
	return s.data.Fingerprint() != s.savedSum
}

// Load reads path and makes its records the working Dataset. History is reset
// with the loaded data as the original snapshot.
func (s *Session) Load(path string) (int, error) {
	var n int
	err := s.record("load", func() (int, error) {
		d, err := s.registry.Load(path)
		if err != nil {
			return 0, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.data = d
		s.path = path
		s.markSaved()
		s.history.SetOriginal(d)
		n = len(d)
		return n, nil
	})
	return n, err
}

// Replace makes a copy of d the working Dataset and resets history with it
// as the original snapshot. path, which may be empty, becomes the default
// Save target. The new data counts as unsaved.
func (s *Session) Replace(d dataset.Dataset, path string) error {
	return s.record("replace", func() (int, error) {
		if err := validation.ValidateNotEmpty(d, "Replace"); err != nil {
			return 0, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.data = d.Clone()
		s.path = path
		s.saved = false
		s.history.SetOriginal(s.data)
		return len(d), nil
	})
}

// Save writes the working Dataset to path, or to the current path when path
// is empty, and returns the path written.
func (s *Session) Save(path string) (string, error) {
	var written string
	err := s.record("save", func() (int, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.requireData("Save"); err != nil {
			return 0, err
		}
		if path == "" {
			path = s.path
		}
		if err := validation.ValidatePath(path, "Save"); err != nil {
			return 0, err
		}
		out, err := s.registry.Save(s.data, path)
		if err != nil {
			return 0, err
		}
		s.path = out
		s.markSaved()
		written = out
		return len(s.data), nil
	})
	return written, err
}

// Filter keeps the records satisfying every condition and returns how many
// remain.
func (s *Session) Filter(conds ...filter.Condition) (int, error) {
	var n int
	err := s.record("filter", func() (int, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.requireData("Filter"); err != nil {
			return 0, err
		}
		if len(conds) == 0 {
			return 0, errors.NewInvalidArgumentError("Filter", "", "at least one condition is required")
		}
		out, err := filter.Where(s.data, conds...)
		if err != nil {
			return 0, err
		}
		rows := len(s.data)
		s.commit(out, "filter "+describeConditions(conds))
		n = len(out)
		return rows, nil
	})
	return n, err
}

// FilterByStat keeps the records whose field compares to the field's min, max
// or mean under op. It returns the threshold and the remaining count.
func (s *Session) FilterByStat(field string, op filter.Operator, stat string) (float64, int, error) {
	var (
		threshold float64
		n         int
	)
	err := s.record("filter_by_stat", func() (int, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.requireData("FilterByStat"); err != nil {
			return 0, err
		}
		out, t, err := filter.ByStat(s.data, field, op, stat)
		if err != nil {
			return 0, err
		}
		rows := len(s.data)
		s.commit(out, fmt.Sprintf("filter %s %s %s (%g)", field, op, stat, t))
		threshold, n = t, len(out)
		return rows, nil
	})
	return threshold, n, err
}

// Sort orders the working Dataset by keys. When sorting fails the working
// Dataset keeps its order and no snapshot is recorded; the failure is logged
// and returned in Result.Err.
func (s *Session) Sort(keys ...sorting.Key) sorting.Result {
	var res sorting.Result
	_ = s.record("sort", func() (int, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.requireData("Sort"); err != nil {
			res = sorting.Result{Dataset: s.data.Clone(), Err: err}
			return 0, err
		}
		res = sorting.Sort(s.data, keys...)
		if res.Err != nil {
			s.logger.Warn("sort not applied, keeping current order",
				slog.String("keys", describeKeys(keys)),
				slog.Any("error", res.Err),
			)
			return 0, res.Err
		}
		s.commit(res.Dataset, "sort "+describeKeys(keys))
		res.Dataset = res.Dataset.Clone()
		return len(s.data), nil
	})
	return res
}

// Stats analyzes the working Dataset.
func (s *Session) Stats() (analyzer.Report, error) {
	var report analyzer.Report
	err := s.record("stats", func() (int, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.requireData("Stats"); err != nil {
			return 0, err
		}
		report = s.analyzer.Analyze(s.data)
		return len(s.data), nil
	})
	return report, err
}

// Fields reports how every field is populated.
func (s *Session) Fields() (map[string]dataset.FieldPresence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireData("Fields"); err != nil {
		return nil, err
	}
	return dataset.Presence(s.data), nil
}

// AddField gives def to every record lacking field.
func (s *Session) AddField(field string, def value.Value) error {
	return s.mutate("add_field", "AddField", "add field "+field, func(d dataset.Dataset) (dataset.Dataset, error) {
		return dataset.AddField(d, field, def)
	})
}

// RemoveField deletes field from every record. The field must exist.
func (s *Session) RemoveField(field string) error {
	return s.mutate("remove_field", "RemoveField", "remove field "+field, func(d dataset.Dataset) (dataset.Dataset, error) {
		if err := validation.NewFieldExistsValidator(d, field, "RemoveField").Validate(); err != nil {
			return nil, err
		}
		return dataset.RemoveField(d, field)
	})
}

// RenameField moves oldName to newName in every record. oldName must
// exist.
func (s *Session) RenameField(oldName, newName string) error {
	return s.mutate("rename_field", "RenameField", "rename field "+oldName+" to "+newName, func(d dataset.Dataset) (dataset.Dataset, error) {
		if err := validation.NewFieldExistsValidator(d, oldName, "RenameField").Validate(); err != nil {
			return nil, err
		}
		return dataset.RenameField(d, oldName, newName)
	})
}

// UpdateField sets field to v on every record matching cond and returns the
// number of records changed.
func (s *Session) UpdateField(cond filter.Condition, field string, v value.Value) (int, error) {
	var updated int
	err := s.mutate("update_field", "UpdateField", "update field "+field+" where "+cond.String(), func(d dataset.Dataset) (dataset.Dataset, error) {
		out, n, err := filter.Update(d, cond, field, v)
		updated = n
		return out, err
	})
	return updated, err
}

// Undo restores the previous snapshot. It reports false, changing nothing,
// when there is nothing to undo.
func (s *Session) Undo() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, desc, ok := s.history.Undo()
	if !ok {
		s.logger.Debug("nothing to undo")
		return "", false
	}
	s.data = d
	s.logger.Info("undo", slog.String("restored", desc), slog.Int("records", len(d)))
	return desc, true
}

// Redo re-applies the next snapshot. It reports false, changing nothing,
// when there is nothing to redo.
func (s *Session) Redo() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, desc, ok := s.history.Redo()
	if !ok {
		s.logger.Debug("nothing to redo")
		return "", false
	}
	s.data = d
	s.logger.Info("redo", slog.String("restored", desc), slog.Int("records", len(d)))
	return desc, true
}

// History describes the undo/redo log.
func (s *Session) History() history.Info {
	return s.history.Info()
}

// mutate applies fn to the working Dataset and commits the result.
func (s *Session) mutate(metric, op, description string, fn func(dataset.Dataset) (dataset.Dataset, error)) error {
	return s.record(metric, func() (int, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.requireData(op); err != nil {
			return 0, err
		}
		out, err := fn(s.data)
		if err != nil {
			return 0, err
		}
		s.commit(out, description)
		return len(out), nil
	})
}

// commit replaces the working Dataset and records a snapshot. Callers hold mu.
func (s *Session) commit(d dataset.Dataset, description string) {
	s.data = d
	s.history.SaveState(d, description)
	s.logger.Debug("state saved", slog.String("description", description), slog.Int("records", len(d)))
}

// markSaved remembers the working Dataset as persisted. Callers hold mu.
func (s *Session) markSaved() {
	s.saved = true
	s.savedSum = s.data.Fingerprint()
}

// requireData fails when there are no records to operate on. Callers hold mu.
func (s *Session) requireData(op string) error {
	return validation.ValidateNotEmpty(s.data, op)
}

func (s *Session) record(operation string, fn func() (int, error)) error {
	return s.metrics.RecordOperation(operation, fn)
}

func describeConditions(conds []filter.Condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " and ")
}

func describeKeys(keys []sorting.Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}
