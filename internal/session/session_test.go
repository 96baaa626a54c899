package session_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/paveg/datafilter/internal/config"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/filter"
	"github.com/paveg/datafilter/internal/monitoring"
	"github.com/paveg/datafilter/internal/session"
	"github.com/paveg/datafilter/internal/sorting"
	"github.com/paveg/datafilter/internal/testutil"
	"github.com/paveg/datafilter/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const employeesCSV = `name,age,department,salary
Alice,25,Engineering,100000.0
Bob,30,Sales,80000.0
Charlie,35,Engineering,120000.0
David,28,Marketing,75000.0
`

func loadedSession(t *testing.T, opts ...session.Option) *session.Session {
	t.Helper()
	s := session.New(nil, opts...)
	path := testutil.WriteFile(t, "employees.csv", employeesCSV)
	n, err := s.Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return s
}

func TestSession_EmptyOperations(t *testing.T) {
	s := session.New(nil)

	_, err := s.Filter(filter.Condition{Field: "age", Op: filter.OpGt, Operand: value.Int(1)})
	assert.ErrorIs(t, err, errors.ErrEmptyDataset)

	_, _, err = s.FilterByStat("age", filter.OpGt, "mean")
	assert.ErrorIs(t, err, errors.ErrEmptyDataset)

	res := s.Sort(sorting.Key{Field: "age"})
	assert.ErrorIs(t, res.Err, errors.ErrEmptyDataset)
	assert.False(t, res.Applied)

	_, err = s.Stats()
	assert.ErrorIs(t, err, errors.ErrEmptyDataset)

	_, err = s.Save(filepath.Join(t.TempDir(), "out.json"))
	assert.ErrorIs(t, err, errors.ErrEmptyDataset)

	assert.ErrorIs(t, s.AddField("x", value.Null()), errors.ErrEmptyDataset)

	_, ok := s.Undo()
	assert.False(t, ok)
	_, ok = s.Redo()
	assert.False(t, ok)
	assert.False(t, s.Dirty())
}

func TestSession_LoadFilterUndoRedo(t *testing.T) {
	s := loadedSession(t)
	assert.NotEmpty(t, s.ID())
	assert.False(t, s.Dirty())

	n, err := s.Filter(filter.Condition{Field: "age", Op: filter.OpGe, Operand: value.Int(30)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, s.Dirty())
	testutil.AssertFieldValues(t, s.Data(), "name", value.Text("Bob"), value.Text("Charlie"))

	desc, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "loaded", desc)
	assert.Equal(t, 4, s.Len())
	assert.False(t, s.Dirty())

	_, ok = s.Undo()
	assert.False(t, ok, "undo at the original snapshot is a no-op")
	assert.Equal(t, 4, s.Len())

	desc, ok = s.Redo()
	require.True(t, ok)
	assert.Equal(t, "filter age >= 30", desc)
	assert.Equal(t, 2, s.Len())

	_, ok = s.Redo()
	assert.False(t, ok)
}

func TestSession_NewStateDiscardsRedo(t *testing.T) {
	s := loadedSession(t)

	_, err := s.Filter(filter.Condition{Field: "department", Op: filter.OpEq, Operand: value.Text("engineering")})
	require.NoError(t, err)
	_, ok := s.Undo()
	require.True(t, ok)

	require.NoError(t, s.RemoveField("salary"))

	info := s.History()
	assert.Equal(t, 2, info.Total)
	assert.False(t, info.CanRedo)
	assert.Equal(t, "remove field salary", info.Entries[1].Description)
	_, ok = s.Redo()
	assert.False(t, ok)
}

func TestSession_DataIsIsolated(t *testing.T) {
	s := loadedSession(t)

	d := s.Data()
	d[0]["name"] = value.Text("Mallory")

	testutil.AssertFieldValues(t, s.Data(), "name",
		value.Text("Alice"), value.Text("Bob"), value.Text("Charlie"), value.Text("David"))
}

func TestSession_Sort(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	path := testutil.WriteFile(t, "employees.csv", employeesCSV)
	s := session.New(logger)
	_, err := s.Load(path)
	require.NoError(t, err)

	res := s.Sort(sorting.Key{Field: "salary", Descending: true})
	require.NoError(t, res.Err)
	assert.True(t, res.Applied)
	testutil.AssertFieldValues(t, s.Data(), "name",
		value.Text("Charlie"), value.Text("Alice"), value.Text("Bob"), value.Text("David"))
	assert.Equal(t, 2, s.History().Total)

	res = s.Sort()
	require.Error(t, res.Err)
	assert.False(t, res.Applied)
	assert.Equal(t, 2, s.History().Total, "a failed sort records no snapshot")
	testutil.AssertFieldValues(t, res.Dataset, "name",
		value.Text("Charlie"), value.Text("Alice"), value.Text("Bob"), value.Text("David"))
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "sort not applied")
}

func TestSession_FilterByStat(t *testing.T) {
	s := loadedSession(t)

	threshold, n, err := s.FilterByStat("salary", filter.OpGt, "mean")
	require.NoError(t, err)
	assert.InDelta(t, 93750.0, threshold, 1e-9)
	assert.Equal(t, 2, n)

	_, _, err = s.FilterByStat("name", filter.OpGt, "mean")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Equal(t, 2, s.Len())
}

func TestSession_Stats(t *testing.T) {
	s := loadedSession(t, session.WithHistoryCapacity(5))

	report, err := s.Stats()
	require.NoError(t, err)
	require.Contains(t, report, "age")
	require.NotNil(t, report["age"].Number)
	assert.InDelta(t, 29.5, report["age"].Number.Mean, 1e-9)
	assert.Equal(t, 4, report["name"].Text.Count)

	fields, err := s.Fields()
	require.NoError(t, err)
	assert.True(t, fields["department"].PresentInAll)
}

func TestSession_FieldManagement(t *testing.T) {
	s := loadedSession(t)

	require.NoError(t, s.AddField("active", value.Bool(true)))
	require.NoError(t, s.RenameField("department", "team"))
	n, err := s.UpdateField(
		filter.Condition{Field: "age", Op: filter.OpLt, Operand: value.Int(29)},
		"active", value.Bool(false),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	d := s.Data()
	testutil.AssertDatasetHasFields(t, d, []string{"active", "age", "name", "salary", "team"})
	testutil.AssertFieldValues(t, d, "active",
		value.Bool(false), value.Bool(true), value.Bool(true), value.Bool(false))

	err = s.RenameField("team", "team")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Equal(t, 4, s.History().Total)

	for range 3 {
		_, ok := s.Undo()
		require.True(t, ok)
	}
	testutil.AssertDatasetHasFields(t, s.Data(), []string{"age", "department", "name", "salary"})
}

func TestSession_SaveRoundTrip(t *testing.T) {
	s := loadedSession(t)
	require.NoError(t, s.AddField("tags", value.List(value.Text("a"), value.Int(1))))
	assert.True(t, s.Dirty())

	out := filepath.Join(t.TempDir(), "employees.YAML")
	written, err := s.Save(out)
	require.NoError(t, err)
	assert.Equal(t, out, written)
	assert.Equal(t, out, s.Path())
	assert.False(t, s.Dirty())

	reloaded := session.New(nil)
	_, err = reloaded.Load(out)
	require.NoError(t, err)
	testutil.AssertDatasetEqual(t, s.Data(), reloaded.Data())

	// An empty path saves back to the current path.
	require.NoError(t, s.RemoveField("tags"))
	written, err = s.Save("")
	require.NoError(t, err)
	assert.Equal(t, out, written)
}

func TestSession_LoadErrors(t *testing.T) {
	s := session.New(nil)

	_, err := s.Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, errors.ErrNotFound)

	bad := testutil.WriteFile(t, "bad.json", "{not json")
	_, err = s.Load(bad)
	assert.ErrorIs(t, err, errors.ErrDecode)

	unknown := testutil.WriteFile(t, "data.parquet", "PAR1")
	_, err = s.Load(unknown)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
	assert.Equal(t, 0, s.Len())
}

func TestSession_NewFromConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.HistoryCapacity = 2
	cfg.ExtensionAliases = map[string]string{".tsv": "csv"}
	cfg.CSVDelimiter = "\t"
	collector := monitoring.NewMetricsCollector(true)

	s, err := session.NewFromConfig(cfg, nil, collector)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "people.tsv")
	require.NoError(t, os.WriteFile(path, []byte("name\tage\nAda\t36\n"), 0o600))
	_, err = s.Load(path)
	require.NoError(t, err)
	testutil.AssertFieldValues(t, s.Data(), "age", value.Int(36))

	for _, f := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddField(f, value.Int(0)))
	}
	assert.Equal(t, 2, s.History().Total)

	summary := collector.GetSummary()
	assert.Equal(t, 1, summary.OperationCounts["load"])
	assert.Equal(t, 3, summary.OperationCounts["add_field"])
}

func TestSession_Replace(t *testing.T) {
	s := loadedSession(t)
	require.NoError(t, s.RemoveField("salary"))

	d := dataset.Dataset{{"id": value.Int(1)}, {"id": value.Int(2)}}
	out := filepath.Join(t.TempDir(), "ids.csv")
	require.NoError(t, s.Replace(d, out))
	d[0]["id"] = value.Int(99)

	testutil.AssertFieldValues(t, s.Data(), "id", value.Int(1), value.Int(2))
	assert.True(t, s.Dirty())
	assert.Equal(t, 1, s.History().Total)
	_, ok := s.Undo()
	assert.False(t, ok)

	written, err := s.Save("")
	require.NoError(t, err)
	assert.Equal(t, out, written)
	assert.False(t, s.Dirty())

	assert.ErrorIs(t, s.Replace(dataset.Dataset{}, ""), errors.ErrEmptyDataset)
	assert.Equal(t, 2, s.Len())
}

func TestSession_UnknownFieldEdits(t *testing.T) {
	s := loadedSession(t)

	err := s.RemoveField("bonus")
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "field does not exist")

	err = s.RenameField("bonus", "extra")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	assert.Equal(t, 1, s.History().Total, "failed edits record no snapshot")
	assert.False(t, s.Dirty())
}

func TestSession_NewFromConfigMetricsDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MetricsEnabled = false
	collector := monitoring.NewMetricsCollector(true)

	s, err := session.NewFromConfig(cfg, nil, collector)
	require.NoError(t, err)
	assert.False(t, collector.IsEnabled())

	path := testutil.WriteFile(t, "employees.csv", employeesCSV)
	_, err = s.Load(path)
	require.NoError(t, err)
	assert.Empty(t, collector.GetMetrics())
}

func TestSession_NewFromConfigRetention(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MetricsMaxRecords = 2
	cfg.Workers = 4
	cfg.ParallelThreshold = 0
	collector := monitoring.NewMetricsCollector(true)

	s, err := session.NewFromConfig(cfg, nil, collector)
	require.NoError(t, err)

	path := testutil.WriteFile(t, "employees.csv", employeesCSV)
	_, err = s.Load(path)
	require.NoError(t, err)
	report, err := s.Stats()
	require.NoError(t, err)
	assert.Contains(t, report.Fields(), "salary")
	_, err = s.Stats()
	require.NoError(t, err)

	assert.Len(t, collector.GetMetrics(), 2)
}
