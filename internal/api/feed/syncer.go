package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/metrics"
	"github.com/Alias1177/football-predictor/models"
)

// Source is anything that can list scraped matches
type Source interface {
	FetchMatches(ctx context.Context, since time.Time) ([]models.Match, error)
}

// Syncer copies matches from the feed into the store. After the first
// successful sync only matches updated since the previous sync are requested.
type Syncer struct {
	source  Source
	writer  models.MatchWriter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	lastSync time.Time
}

func NewSyncer(source Source, writer models.MatchWriter, m *metrics.Metrics) *Syncer {
	return &Syncer{
		source:  source,
		writer:  writer,
		metrics: m,
		logger:  log.With().Str("component", "feed_sync").Logger(),
	}
}

// Sync pulls and stores matches, returning how many were written
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	matches, err := s.source.FetchMatches(ctx, s.lastSync)
	if err != nil {
		s.metrics.RecordFeedSync(err, 0)
		return 0, &models.AccessorError{Op: "fetch feed", Err: err}
	}

	if len(matches) > 0 {
		if err := s.writer.UpsertMatches(ctx, matches); err != nil {
			s.metrics.RecordFeedSync(err, 0)
			return 0, &models.AccessorError{Op: "store feed", Err: fmt.Errorf("%d matches: %w", len(matches), err)}
		}
	}

	s.lastSync = started
	s.metrics.RecordFeedSync(nil, len(matches))
	s.logger.Info().Int("matches", len(matches)).Dur("took", time.Since(started)).Msg("Feed synced")
	return len(matches), nil
}
