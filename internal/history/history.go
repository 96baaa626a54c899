// Package history keeps a bounded linear undo/redo log of Dataset states.
//
// The log holds snapshots S0..Sn and a cursor. Saving a new state discards
// every snapshot after the cursor. When the log exceeds its capacity the
// oldest snapshot is evicted. Every Dataset handed in or out is deep-copied,
// so callers may mutate what they receive without corrupting the log.
package history

import (
	"log/slog"
	"sync"
	"time"

	"github.com/paveg/datafilter/internal/dataset"
)

// DefaultCapacity is the default maximum number of snapshots.
const DefaultCapacity = 50

// LoadedDescription labels the snapshot stored by SetOriginal.
const LoadedDescription = "loaded"

// snapshot is one recorded Dataset state.
type snapshot struct {
	Seq         uint64
	Description string
	Count       int
	Checksum    uint64
	CreatedAt   time.Time
	data        dataset.Dataset
}

// Entry describes a snapshot without its data.
type Entry struct {
	Seq         uint64    `json:"seq"`
	Description string    `json:"description"`
	Count       int       `json:"count"`
	Checksum    uint64    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
	Current     bool      `json:"current"`
}

// Info summarises the log.
type Info struct {
	Cursor   int     `json:"cursor"`
	Total    int     `json:"total"`
	Capacity int     `json:"capacity"`
	CanUndo  bool    `json:"can_undo"`
	CanRedo  bool    `json:"can_redo"`
	Entries  []Entry `json:"entries"`
}

// Manager is the undo/redo log. It is safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	snapshots []snapshot
	cursor    int
	capacity  int
	nextSeq   uint64
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates an empty log. A capacity below one selects
// DefaultCapacity.
func NewManager(capacity int, logger *slog.Logger) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cursor:   -1,
		capacity: capacity,
		logger:   logger.With(slog.String("component", "history")),
		now:      time.Now,
	}
}

// SetOriginal resets the log and stores d as snapshot 0.
func (m *Manager) SetOriginal(d dataset.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.snapshots)
	m.snapshots = m.snapshots[:0]
	m.cursor = -1
	m.push(d, LoadedDescription)
}

// SaveState discards the redo branch, appends d and moves the cursor to it.
func (m *Manager) SaveState(d dataset.Dataset, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dropped := len(m.snapshots) - (m.cursor + 1); dropped > 0 {
		clear(m.snapshots[m.cursor+1:])
		m.snapshots = m.snapshots[:m.cursor+1]
		m.logger.Debug("redo branch discarded", slog.Int("snapshots", dropped))
	}
	m.push(d, description)
}

func (m *Manager) push(d dataset.Dataset, description string) {
	m.nextSeq++
	m.snapshots = append(m.snapshots, snapshot{
		Seq:         m.nextSeq,
		Description: description,
		Count:       d.Len(),
		Checksum:    d.Fingerprint(),
		CreatedAt:   m.now(),
		data:        d.Clone(),
	})
	if len(m.snapshots) > m.capacity {
		evicted := m.snapshots[0]
		m.snapshots[0] = snapshot{}
		m.snapshots = m.snapshots[1:]
		m.logger.Debug("oldest snapshot evicted",
			slog.Uint64("seq", evicted.Seq),
			slog.String("description", evicted.Description),
		)
	}
	m.cursor = len(m.snapshots) - 1
}

// Undo moves the cursor back one snapshot and returns a copy of it. At the
// earliest snapshot, or on an empty log, it reports ok=false and changes
// nothing.
func (m *Manager) Undo() (d dataset.Dataset, description string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor <= 0 {
		return nil, "", false
	}
	m.cursor--
	s := m.snapshots[m.cursor]
	return s.data.Clone(), s.Description, true
}

// Redo moves the cursor forward one snapshot and returns a copy of it. With
// no later snapshot it reports ok=false and changes nothing.
func (m *Manager) Redo() (d dataset.Dataset, description string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor+1 >= len(m.snapshots) {
		return nil, "", false
	}
	m.cursor++
	s := m.snapshots[m.cursor]
	return s.data.Clone(), s.Description, true
}

// Current returns a copy of the snapshot at the cursor.
func (m *Manager) Current() (d dataset.Dataset, description string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor < 0 {
		return nil, "", false
	}
	s := m.snapshots[m.cursor]
	return s.data.Clone(), s.Description, true
}

// CanUndo reports whether Undo would move the cursor.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

// CanRedo reports whether Redo would move the cursor.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor+1 < len(m.snapshots)
}

// Len returns the number of stored snapshots.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

// Info describes the log and every snapshot, oldest first.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := Info{
		Cursor:   m.cursor,
		Total:    len(m.snapshots),
		Capacity: m.capacity,
		CanUndo:  m.cursor > 0,
		CanRedo:  m.cursor+1 < len(m.snapshots),
		Entries:  make([]Entry, len(m.snapshots)),
	}
	for i, s := range m.snapshots {
		info.Entries[i] = Entry{
			Seq:         s.Seq,
			Description: s.Description,
			Count:       s.Count,
			Checksum:    s.Checksum,
			CreatedAt:   s.CreatedAt,
			Current:     i == m.cursor,
		}
	}
	return info
}

// Reset empties the log.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.snapshots)
	m.snapshots = nil
	m.cursor = -1
}
