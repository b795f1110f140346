package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Persistence outcome of a completed attempt. Generation and persistence
// succeed or fail independently; a failed save never un-completes a
// generation.
const (
	PersistPending = "pending"
	PersistSaving  = "saving"
	PersistSaved   = "saved"
	PersistFailed  = "failed"
	PersistSkipped = "skipped"
)

// Persister stores a record of a completed generation.
type Persister interface {
	SaveGeneration(ctx context.Context, imageURL, prompt, videoURL string) (int, error)
}

type attempt struct {
	id     uuid.UUID
	orch   *Orchestrator
	cancel context.CancelFunc

	mu           sync.Mutex
	polls        int
	recordID     int
	persistState string
	persistError string
	createdAt    time.Time
	finishedAt   time.Time
}

// AttemptSnapshot is the externally visible view of one attempt.
type AttemptSnapshot struct {
	ID            uuid.UUID
	State         State
	StatusLabel   string
	Prompt        string
	ImageURL      string
	RequestID     string
	VideoURL      string
	FailureReason string
	Polls         int
	RecordID      int
	PersistState  string
	PersistError  string
	CreatedAt     time.Time
}

// Manager runs generation attempts. Each attempt owns its own orchestrator
// and goroutine; the manager drives ticks at a fixed interval, bounds the
// number of polls, and persists a record when an attempt completes.
type Manager struct {
	jobs         JobAPI
	persister    Persister
	logger       zerolog.Logger
	pollInterval time.Duration
	maxPolls     int

	mu       sync.RWMutex
	attempts map[uuid.UUID]*attempt
}

func NewManager(jobs JobAPI, persister Persister, logger zerolog.Logger, pollInterval time.Duration, maxPolls int) *Manager {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if maxPolls <= 0 {
		maxPolls = 150
	}
	return &Manager{
		jobs:         jobs,
		persister:    persister,
		logger:       logger,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		attempts:     make(map[uuid.UUID]*attempt),
	}
}

// Begin starts a new generation attempt and returns its id. The attempt
// runs in the background; progress is observed via Snapshot.
func (m *Manager) Begin(image []byte, contentType, prompt string, opts Options) uuid.UUID {
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	logger := m.logger.With().Str("generation_id", id.String()).Logger()
	orch := NewOrchestrator(m.jobs, opts, Hooks{
		OnTransition: func(state State, statusLabel string) {
			logger.Info().Str("state", string(state)).Str("status", statusLabel).Msg("generation transition")
		},
	})

	a := &attempt{
		id:           id,
		orch:         orch,
		cancel:       cancel,
		persistState: PersistPending,
		createdAt:    time.Now(),
	}

	m.mu.Lock()
	m.attempts[id] = a
	m.mu.Unlock()

	go m.run(ctx, a, image, contentType, prompt, logger)

	return id
}

func (m *Manager) run(ctx context.Context, a *attempt, image []byte, contentType, prompt string, logger zerolog.Logger) {
	defer a.cancel()

	if err := a.orch.Start(ctx, image, contentType, prompt); err != nil {
		logger.Error().Err(err).Msg("generation failed to start")
		m.finish(a)
		return
	}

	for {
		a.mu.Lock()
		polls := a.polls
		a.mu.Unlock()

		if polls >= m.maxPolls {
			a.orch.Abort(fmt.Sprintf("generation timed out after %d polls", polls))
			break
		}

		select {
		case <-ctx.Done():
			a.orch.Abort("generation attempt cancelled")
			m.finish(a)
			return
		case <-time.After(m.pollInterval):
		}

		a.mu.Lock()
		a.polls++
		a.mu.Unlock()

		if a.orch.Tick(ctx) {
			break
		}
	}

	snap := a.orch.Snapshot()
	if snap.State == StateCompleted {
		m.persist(a, snap, logger)
	} else {
		logger.Warn().Str("reason", snap.FailureReason).Msg("generation failed")
	}

	m.finish(a)
}

func (m *Manager) persist(a *attempt, snap Snapshot, logger zerolog.Logger) {
	if m.persister == nil {
		a.mu.Lock()
		a.persistState = PersistSkipped
		a.mu.Unlock()
		return
	}

	a.mu.Lock()
	a.persistState = PersistSaving
	a.mu.Unlock()

	recordID, err := m.persister.SaveGeneration(context.Background(), snap.ImageURL, snap.Prompt, snap.VideoURL)
	a.mu.Lock()
	if err != nil {
		a.persistState = PersistFailed
		a.persistError = err.Error()
	} else {
		a.persistState = PersistSaved
		a.recordID = recordID
	}
	a.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Msg("failed to persist generation record")
	} else {
		logger.Info().Int("record_id", recordID).Msg("generation record saved")
	}
}

func (m *Manager) finish(a *attempt) {
	a.mu.Lock()
	if a.finishedAt.IsZero() {
		a.finishedAt = time.Now()
	}
	if a.persistState == PersistPending {
		a.persistState = PersistSkipped
	}
	a.mu.Unlock()
}

// Snapshot returns the current view of an attempt.
func (m *Manager) Snapshot(id uuid.UUID) (AttemptSnapshot, bool) {
	m.mu.RLock()
	a, ok := m.attempts[id]
	m.mu.RUnlock()
	if !ok {
		return AttemptSnapshot{}, false
	}

	snap := a.orch.Snapshot()
	a.mu.Lock()
	defer a.mu.Unlock()
	return AttemptSnapshot{
		ID:            a.id,
		State:         snap.State,
		StatusLabel:   snap.StatusLabel,
		Prompt:        snap.Prompt,
		ImageURL:      snap.ImageURL,
		RequestID:     snap.RequestID,
		VideoURL:      snap.VideoURL,
		FailureReason: snap.FailureReason,
		Polls:         a.polls,
		RecordID:      a.recordID,
		PersistState:  a.persistState,
		PersistError:  a.persistError,
		CreatedAt:     a.createdAt,
	}, true
}

// Cancel abandons a running attempt. The outstanding remote job keeps
// running on the provider's side; only local polling stops.
func (m *Manager) Cancel(id uuid.UUID) bool {
	m.mu.RLock()
	a, ok := m.attempts[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	a.cancel()
	return true
}

// EvictFinished drops terminal attempts that finished before the cutoff and
// returns how many were removed.
func (m *Manager) EvictFinished(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, a := range m.attempts {
		if !a.orch.State().IsTerminal() {
			continue
		}
		a.mu.Lock()
		finished := a.finishedAt
		a.mu.Unlock()
		if !finished.IsZero() && finished.Before(cutoff) {
			delete(m.attempts, id)
			evicted++
		}
	}
	return evicted
}
