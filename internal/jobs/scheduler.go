package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/blockdeals/blockdeals/internal/repository"
	"github.com/blockdeals/blockdeals/internal/service"
)

const projectionTTL = 26 * time.Hour

// Scheduler refreshes the brand and country projections into redis once a
// day so the hot listing endpoints do not recompute them per request.
type Scheduler struct {
	cron  *cron.Cron
	deals *repository.DealRepository
	cache *redis.Client
	log   zerolog.Logger
}

func NewScheduler(deals *repository.DealRepository, cache *redis.Client, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		deals: deals,
		cache: cache,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.cache == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 0 * * *", s.refreshProjections); err != nil {
		return err
	}

	// Warm the cache on boot instead of waiting for midnight.
	go s.refreshProjections()

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits briefly for a running refresh to
// finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) refreshProjections() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	brands, err := s.deals.DistinctBrands(ctx, true)
	if err != nil {
		s.log.Error().Err(err).Msg("brand projection refresh failed")
	} else if err := s.storeProjection(ctx, service.BrandsCacheKey, brands); err != nil {
		s.log.Error().Err(err).Msg("brand projection store failed")
	}

	countries, err := s.deals.DistinctCountryCodes(ctx, true)
	if err != nil {
		s.log.Error().Err(err).Msg("country projection refresh failed")
	} else if err := s.storeProjection(ctx, service.CountriesCacheKey, countries); err != nil {
		s.log.Error().Err(err).Msg("country projection store failed")
	}

	s.log.Debug().Int("brands", len(brands)).Int("countries", len(countries)).Msg("projections refreshed")
}

func (s *Scheduler) storeProjection(ctx context.Context, key string, values []string) error {
	payload, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, payload, projectionTTL).Err()
}
