package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/logging"
	"github.com/ofeng1/datathon/internal/metrics"
)

// Responder produces one turn against a caller-owned state.
type Responder interface {
	Respond(ctx context.Context, s *clinical.State, msg string) engine.Turn
}

// #region manager
type entry struct {
	mu    sync.Mutex
	state *clinical.State

	// guarded by Manager.mu
	refs     int
	lastUsed time.Time
}

// Manager keeps one State per session and serialises turns within a
// session. Different sessions run concurrently. With a store attached and
// an idle TTL set, sessions untouched for the TTL are dropped from memory
// and resume from the store on their next turn.
type Manager struct {
	responder Responder
	store     *Store // nil keeps sessions in memory only
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	sessions  map[string]*entry
	idleTTL   time.Duration
	lastSweep time.Time
}

// NewManager wires a responder to an optional store.
func NewManager(r Responder, store *Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		responder: r,
		store:     store,
		logger:    logger.With("component", "session"),
		now:       time.Now,
		sessions:  make(map[string]*entry),
	}
}

// SetIdleTTL enables eviction of sessions idle for at least d. Zero
// disables it. Memory-only managers never evict.
func (m *Manager) SetIdleTTL(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleTTL = d
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// #endregion manager

// #region get
// acquire returns the in-memory entry for id, resuming it from the store on
// first use. The entry is pinned against eviction until release.
func (m *Manager) acquire(id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictIdle()
	if e, ok := m.sessions[id]; ok {
		e.refs++
		return e, nil
	}

	e := &entry{state: clinical.NewState()}
	if m.store != nil {
		rec, err := m.store.Load(id)
		switch {
		case err == nil:
			if unknown := e.state.Restore(rec.Snapshot); len(unknown) > 0 {
				m.logger.Warn("dropped unknown fields on resume", "session", id, "fields", unknown)
			}
			m.logger.Info("session resumed", "session", id, "version", rec.VersionID, "fields", e.state.Len())
		case errors.Is(err, ErrNotFound):
			if _, err := m.store.CreateSession(id); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}
	e.refs = 1
	m.sessions[id] = e
	metrics.SetActiveSessions(len(m.sessions))
	return e, nil
}

func (m *Manager) release(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	e.lastUsed = m.now()
}

// evictIdle drops unpinned sessions idle for the TTL. It sweeps at most
// once per half TTL. Caller holds m.mu.
func (m *Manager) evictIdle() {
	if m.idleTTL <= 0 || m.store == nil {
		return
	}
	now := m.now()
	if now.Sub(m.lastSweep) < m.idleTTL/2 {
		return
	}
	m.lastSweep = now
	evicted := 0
	for id, e := range m.sessions {
		if e.refs == 0 && now.Sub(e.lastUsed) >= m.idleTTL {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Debug("idle sessions evicted", "count", evicted, "remaining", len(m.sessions))
		metrics.SetActiveSessions(len(m.sessions))
	}
}

// #endregion get

// #region turn
// Turn runs one message for sessionID, creating the session when the id is
// empty. merge, when non-nil, is applied to the state before the message.
// A changed state is committed as a new version and every turn is logged.
func (m *Manager) Turn(ctx context.Context, sessionID, message string, merge map[string]any) (Result, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	fields, err := ParseMerge(merge)
	if err != nil {
		return Result{}, err
	}

	e, err := m.acquire(sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("open session: %w", err)
	}
	defer m.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.state.Clone()
	e.state.Merge(fields)
	turn := m.responder.Respond(ctx, e.state, message)

	res := Result{SessionID: sessionID, Turn: turn}
	if m.store == nil {
		return res, nil
	}

	if !e.state.Equal(before) {
		rec, err := m.store.Commit(sessionID, e.state.Snapshot())
		if err != nil {
			return res, fmt.Errorf("commit state: %w", err)
		}
		res.VersionID = rec.VersionID
	}
	m.logTurn(res, message, fields)
	return res, nil
}

// logTurn records the turn. Failures are logged, not returned.
func (m *Manager) logTurn(res Result, message string, merged clinical.Extraction) {
	t := res.Turn
	rec := logging.TurnRecord{
		Message: message,
		Fired:   t.Fired,
		Merged:  merged.Fields(),
	}
	if len(t.Extracted) > 0 {
		rec.Extracted = make(map[string]float64, len(t.Extracted))
		for f, v := range t.Extracted {
			rec.Extracted[string(f)] = v
		}
	}
	for _, f := range t.Filled {
		rec.Filled = append(rec.Filled, string(f))
	}
	for _, r := range t.Risks {
		rec.Risks = append(rec.Risks, logging.TurnRisk{Task: r.Task, Base: r.Base, Probability: r.Probability})
	}
	detail, err := json.Marshal(rec)
	if err != nil {
		m.logger.Warn("marshal turn record", "session", res.SessionID, "error", err)
	}

	err = logging.LogTurn(m.store.DB(), logging.TurnEntry{
		SessionID:    res.SessionID,
		VersionID:    res.VersionID,
		Intent:       string(t.Intent),
		Outcome:      string(t.Outcome),
		DetailJSON:   string(detail),
		EvidenceRefs: strings.Join(t.Evidence, ","),
		DurationMS:   t.Duration.Milliseconds(),
	})
	if err != nil {
		m.logger.Warn("turn log write failed", "session", res.SessionID, "error", err)
	}
}

// #endregion turn

// #region merge
// ParseMerge validates a caller-provided field map. Keys must be known
// field names and values numbers or booleans.
func ParseMerge(merge map[string]any) (clinical.Extraction, error) {
	out := make(clinical.Extraction, len(merge))
	for name, raw := range merge {
		f, err := clinical.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMerge, err)
		}
		switch v := raw.(type) {
		case float64:
			out[f] = v
		case int:
			out[f] = float64(v)
		case json.Number:
			n, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMerge, name, err)
			}
			out[f] = n
		case bool:
			if v {
				out[f] = 1
			} else {
				out[f] = 0
			}
		default:
			return nil, fmt.Errorf("%w: %s: value %v is not numeric", ErrInvalidMerge, name, raw)
		}
	}
	return out, nil
}

// #endregion merge
