package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/defense"
	"github.com/stitts-dev/waiver-ranker/internal/dfs"
	"github.com/stitts-dev/waiver-ranker/internal/metrics"
	"github.com/stitts-dev/waiver-ranker/internal/providers"
)

const (
	originBundled = "bundled"
	originFile    = "file"
	originSource  = "source"

	datasetDefense = "defense"
)

// DefenseFetcher supplies raw defensive ranking payloads
type DefenseFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	Configured() bool
	Location() string
}

type defenseSnapshot struct {
	table    *defense.Table
	origin   string
	loadedAt time.Time
}

// DefenseStatus describes where the current rankings came from
type DefenseStatus struct {
	Source      string     `json:"source"`
	Configured  bool       `json:"configured"`
	Origin      string     `json:"origin"`
	Teams       int        `json:"teams"`
	LoadedAt    time.Time  `json:"loadedAt"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	CacheFile   string     `json:"cacheFile"`
	Interval    string     `json:"refreshInterval"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
}

// DefenseService owns the process-wide defense ranking snapshot. Readers
// never block: refreshes build a new table and swap it in whole.
type DefenseService struct {
	source     DefenseFetcher
	normalizer *defense.Normalizer
	cacheFile  string
	interval   time.Duration
	logger     *logrus.Logger
	metrics    *metrics.RefreshMetrics

	snapshot atomic.Pointer[defenseSnapshot]

	refreshMu    sync.Mutex
	noSourceOnce sync.Once

	mu        sync.Mutex
	cron      *cron.Cron
	isRunning bool
	startup   sync.WaitGroup

	statusMu    sync.Mutex
	lastAttempt *time.Time
	lastError   string
}

// NewDefenseService bootstraps from cacheFile, or the bundled table when
// the file is missing or unreadable
func NewDefenseService(
	source DefenseFetcher,
	normalizer *defense.Normalizer,
	cacheFile string,
	interval time.Duration,
	m *metrics.RefreshMetrics,
	logger *logrus.Logger,
) *DefenseService {
	s := &DefenseService{
		source:     source,
		normalizer: normalizer,
		cacheFile:  cacheFile,
		interval:   interval,
		logger:     logger,
		metrics:    m,
		cron:       cron.New(),
	}
	s.bootstrap()
	return s
}

func (s *DefenseService) bootstrap() {
	log := s.logger.WithFields(logrus.Fields{"component": "defense", "cache_file": s.cacheFile})

	if s.cacheFile != "" {
		entries, err := defense.LoadFile(s.cacheFile)
		if err == nil {
			s.snapshot.Store(&defenseSnapshot{table: defense.NewTable(entries), origin: originFile, loadedAt: time.Now()})
			log.WithField("teams", len(entries)).Info("Loaded persisted defense rankings")
			return
		}
		log.WithError(err).Info("No usable persisted defense rankings, using bundled defaults")
	}

	s.snapshot.Store(&defenseSnapshot{table: defense.BundledTable(), origin: originBundled, loadedAt: time.Now()})
}

// Start schedules the background refresh and runs one immediately
func (s *DefenseService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("defense refresher is already running")
	}

	if s.interval > 0 {
		schedule := fmt.Sprintf("@every %s", s.interval.String())
		if _, err := s.cron.AddFunc(schedule, s.scheduledRefresh); err != nil {
			return fmt.Errorf("failed to schedule defense refresh: %w", err)
		}
	}

	s.cron.Start()
	s.isRunning = true

	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.scheduledRefresh()
	}()

	s.logger.WithFields(logrus.Fields{
		"component": "defense",
		"interval":  s.interval.String(),
		"source":    s.source.Location(),
	}).Info("Defense refresher started")
	return nil
}

// Stop halts the background refresh and waits for running jobs,
// including the refresh kicked off by Start
func (s *DefenseService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.startup.Wait()

	s.isRunning = false
	s.logger.WithField("component", "defense").Info("Defense refresher stopped")
}

func (s *DefenseService) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, providers.ErrNoSource) {
		s.logger.WithField("component", "defense").WithError(err).Warn("Scheduled defense refresh failed, keeping current rankings")
	}
}

// Refresh fetches, normalizes and persists fresh rankings. On any failure
// the current snapshot stays in place and the error is returned.
func (s *DefenseService) Refresh(ctx context.Context) (*defense.Table, error) {
	if !s.source.Configured() {
		s.noSourceOnce.Do(func() {
			s.logger.WithField("component", "defense").
				Warn("No defense source configured, serving bundled or persisted rankings")
		})
		return s.Table(), providers.ErrNoSource
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	table, err := s.fetch(ctx)
	s.recordAttempt(err)
	s.metrics.Record(datasetDefense, err)
	if err != nil {
		return s.Table(), err
	}

	s.snapshot.Store(&defenseSnapshot{table: table, origin: originSource, loadedAt: time.Now()})

	if s.cacheFile != "" {
		if err := defense.SaveFile(s.cacheFile, table.Entries()); err != nil {
			s.logger.WithField("component", "defense").WithError(err).Error("Failed to persist defense rankings")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"component": "defense",
		"teams":     table.Len(),
		"source":    s.source.Location(),
	}).Info("Defense rankings refreshed")
	return table, nil
}

func (s *DefenseService) fetch(ctx context.Context) (*defense.Table, error) {
	payload, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch defense rankings: %w", err)
	}
	entries, err := s.normalizer.Normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize defense rankings: %w", err)
	}
	return defense.NewTable(entries), nil
}

func (s *DefenseService) recordAttempt(err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	now := time.Now()
	s.lastAttempt = &now
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
}

// Table returns the current snapshot
func (s *DefenseService) Table() *defense.Table {
	return s.snapshot.Load().table
}

// CanonicalTeam maps a caller's team value onto the code rows are keyed
// by, using the configured alias table
func (s *DefenseService) CanonicalTeam(team string) string {
	if code, ok := s.normalizer.CanonicalTeam(team); ok {
		return code
	}
	return dfs.NormalizeTeam(team)
}

// Lookup returns a team's entry
func (s *DefenseService) Lookup(team string) (dfs.DefenseRankEntry, bool) {
	return s.Table().Lookup(s.CanonicalTeam(team))
}

// RankFor returns the opponent's rank against pos, neutral when unknown
func (s *DefenseService) RankFor(opponent string, pos dfs.Position) float64 {
	if rank, ok := s.Table().RankFor(s.CanonicalTeam(opponent), pos); ok {
		return rank
	}
	return defense.NeutralRank
}

// Status reports the snapshot's origin and the last refresh attempt
func (s *DefenseService) Status() DefenseStatus {
	snap := s.snapshot.Load()

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	status := DefenseStatus{
		Source:      s.source.Location(),
		Configured:  s.source.Configured(),
		Origin:      snap.origin,
		Teams:       snap.table.Len(),
		LoadedAt:    snap.loadedAt,
		LastAttempt: s.lastAttempt,
		LastError:   s.lastError,
		CacheFile:   s.cacheFile,
		Interval:    s.interval.String(),
	}
	for _, entry := range s.cron.Entries() {
		next := entry.Next
		if !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}
