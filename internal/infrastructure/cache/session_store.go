package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long a submitted print job stays usable
const DefaultSessionTTL = 24 * time.Hour

// ErrPersistenceFailed wraps snapshot read and write failures
var ErrPersistenceFailed = shared.NewDomainError(printing.CodePersistenceFailed, "session snapshot could not be persisted")

// snapshot is the on-disk layout of the session store
type snapshot struct {
	SavedAt  time.Time                      `json:"saved_at"`
	Sessions map[string]*printing.PrintJob `json:"sessions"`
}

// SessionStoreConfig configures a SessionStore
type SessionStoreConfig struct {
	// TTL is the age after which a job is evicted (default 24h)
	TTL time.Duration
	// SnapshotPath is the JSON file mirrored on every mutation; empty keeps the store memory-only
	SnapshotPath string
	// SweepInterval runs Sweep periodically; zero disables the background sweep
	SweepInterval time.Duration
	Logger        *zap.Logger
}

// SessionStore keeps the latest PrintJob per session in memory with a TTL and
// mirrors the whole map to a JSON snapshot so jobs survive a restart.
// Snapshot writes are asynchronous and best effort: a failed write is logged
// and the in-memory state stays authoritative.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*printing.PrintJob

	config SessionStoreConfig
	logger *zap.Logger
	now    func() time.Time

	writeMu   sync.Mutex
	persistCh chan struct{}
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSessionStore creates a store, restores the snapshot if it is still
// fresh and starts the background writer and sweep loops.
func NewSessionStore(cfg SessionStoreConfig) *SessionStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &SessionStore{
		sessions:  make(map[string]*printing.PrintJob),
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		persistCh: make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}

	s.load()
	s.Sweep(context.Background())

	s.wg.Add(1)
	go s.writeLoop()

	if cfg.SweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}

	return s
}

// Put validates job and stores a copy stamped with the current time,
// replacing any previous job for the session.
func (s *SessionStore) Put(ctx context.Context, job *printing.PrintJob) (*printing.PrintJob, error) {
	if job == nil {
		return nil, printing.ErrMissingSession
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	stored := job.Clone()
	stored.CreatedAt = s.now()

	s.mu.Lock()
	s.sessions[stored.Session] = stored
	s.mu.Unlock()

	s.schedulePersist()
	return stored.Clone(), nil
}

// Get returns the live job for a session
func (s *SessionStore) Get(ctx context.Context, session string) (*printing.PrintJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.sessions[session]
	if !ok || job.IsExpired(s.now(), s.config.TTL) {
		return nil, false
	}
	return job.Clone(), true
}

// GetAll returns every live job keyed by session
func (s *SessionStore) GetAll(ctx context.Context) map[string]*printing.PrintJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make(map[string]*printing.PrintJob, len(s.sessions))
	for id, job := range s.sessions {
		if !job.IsExpired(now, s.config.TTL) {
			out[id] = job.Clone()
		}
	}
	return out
}

// Latest returns the most recently stored live job
func (s *SessionStore) Latest(ctx context.Context) (*printing.PrintJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var latest *printing.PrintJob
	for _, job := range s.sessions {
		if job.IsExpired(now, s.config.TTL) {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, false
	}
	return latest.Clone(), true
}

// Sweep evicts jobs older than the TTL and rewrites the snapshot.
// It returns the number of evicted jobs.
func (s *SessionStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for id, job := range s.sessions {
		if job.IsExpired(now, s.config.TTL) {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Info("session sweep evicted expired jobs", zap.Int("removed", removed))
	}
	if err := s.Flush(); err != nil {
		s.logger.Warn("session snapshot write failed", zap.Error(err))
	}
	return removed
}

// Flush writes the snapshot synchronously
func (s *SessionStore) Flush() error {
	if s.config.SnapshotPath == "" {
		return nil
	}

	s.mu.RLock()
	snap := snapshot{
		SavedAt:  s.now(),
		Sessions: make(map[string]*printing.PrintJob, len(s.sessions)),
	}
	for id, job := range s.sessions {
		snap.Sessions[id] = job.Clone()
	}
	s.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := writeSnapshot(s.config.SnapshotPath, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// Size returns the number of stored jobs, expired or not
func (s *SessionStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops background loops and writes a final snapshot.
// Safe to call multiple times.
func (s *SessionStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.Flush()
	})
	return err
}

// schedulePersist asks the writer loop for a snapshot. Bursts of mutations
// collapse into a single pending write.
func (s *SessionStore) schedulePersist() {
	select {
	case s.persistCh <- struct{}{}:
	default:
	}
}

func (s *SessionStore) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case <-s.persistCh:
			if err := s.Flush(); err != nil {
				s.logger.Warn("session snapshot write failed", zap.Error(err))
			}
		}
	}
}

func (s *SessionStore) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// load restores the snapshot. A stale or unreadable snapshot is removed and
// the store starts empty; it never fails construction.
func (s *SessionStore) load() {
	path := s.config.SnapshotPath
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("session snapshot unreadable", zap.String("path", path), zap.Error(err))
		}
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("session snapshot corrupt, discarding", zap.String("path", path), zap.Error(err))
		_ = os.Remove(path)
		return
	}

	if s.now().Sub(snap.SavedAt) > s.config.TTL {
		s.logger.Info("session snapshot stale, discarding",
			zap.String("path", path),
			zap.Time("saved_at", snap.SavedAt))
		_ = os.Remove(path)
		return
	}

	restored := 0
	s.mu.Lock()
	for id, job := range snap.Sessions {
		if job == nil || job.Validate() != nil || job.Session != id {
			continue
		}
		s.sessions[id] = job
		restored++
	}
	s.mu.Unlock()

	s.logger.Info("session snapshot restored", zap.Int("sessions", restored))
}

// writeSnapshot replaces path atomically via a temp file in the same directory
func writeSnapshot(path string, snap *snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Ensure SessionStore implements SessionRepository
var _ printing.SessionRepository = (*SessionStore)(nil)
