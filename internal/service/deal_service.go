package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/blockdeals/blockdeals/internal/config"
	"github.com/blockdeals/blockdeals/internal/identity"
	"github.com/blockdeals/blockdeals/internal/models"
)

// DealStore is the persistence contract for deal records.
type DealStore interface {
	Insert(ctx context.Context, deal models.Deal) (int64, error)
	PatchImage(ctx context.Context, permlink, imageURL string) error
	GetByPermlink(ctx context.Context, permlink string) (models.Deal, error)
	ListActive(ctx context.Context, filter models.DealFilter) ([]models.Deal, error)
	DistinctBrands(ctx context.Context, activeOnly bool) ([]string, error)
	DistinctCountryCodes(ctx context.Context, activeOnly bool) ([]string, error)
}

// Publisher submits a formatted deal post to the content network, or
// synthesizes a local permlink when publishing is disabled.
type Publisher interface {
	Publish(ctx context.Context, deal models.Deal, author string) (string, error)
}

// Redis keys holding the nightly projection snapshots.
const (
	BrandsCacheKey    = "projections:brands"
	CountriesCacheKey = "projections:countries"
)

// DealService drives a submission from verification through persistence.
// The verifier, publisher and store are all injected so each leg can be
// faked in tests.
type DealService struct {
	store     DealStore
	publisher Publisher
	verifier  identity.Verifier
	cache     *redis.Client
	cfg       *config.AppConfig
	log       zerolog.Logger

	now func() time.Time
}

func NewDealService(
	store DealStore,
	pub Publisher,
	verifier identity.Verifier,
	cache *redis.Client,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *DealService {
	return &DealService{
		store:     store,
		publisher: pub,
		verifier:  verifier,
		cache:     cache,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Submit runs the submission state machine: a live authorization check,
// normalization, the conditional external publish, then persistence. Every
// failure leg returns before anything is written to the store. On success
// it returns the address the browser should be redirected to.
func (s *DealService) Submit(ctx context.Context, sess models.Session, form models.DealForm) (string, error) {
	// Session flags are never trusted here; every submission re-verifies.
	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.Identity.Timeout)
	defer cancel()

	status, err := s.verifier.Verify(verifyCtx, sess.Token, sess.Username)
	if err != nil {
		s.log.Warn().Err(err).Str("username", sess.Username).Msg("identity check failed")
		return "", ErrNotAuthorized
	}
	if status != identity.StatusAuthorized {
		s.log.Warn().Str("username", sess.Username).Stringer("status", status).Msg("submission rejected")
		return "", ErrNotAuthorized
	}

	deal, err := normalizeDeal(form, s.now(), s.cfg.Steem.FallbackImageURL, s.cfg.Steem.BaseTag)
	if err != nil {
		return "", err
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.cfg.Steem.Timeout)
	defer cancel()

	permlink, err := s.publisher.Publish(publishCtx, deal, sess.Username)
	if err != nil {
		return "", err
	}

	deal.Permlink = permlink
	deal.SteemUser = sess.Username

	id, err := s.store.Insert(ctx, deal)
	if err != nil {
		// The post may already exist externally at this point; that gap is
		// accepted, but it has to be visible in the logs.
		s.log.Error().Err(err).
			Str("permlink", permlink).
			Str("username", sess.Username).
			Msg("deal published but not persisted")
		return "", fmt.Errorf("persist deal: %w", err)
	}

	s.log.Info().Int64("id", id).Str("permlink", permlink).Msg("deal saved")

	if strings.HasPrefix(permlink, "testing-") {
		return "/deal/" + permlink, nil
	}
	return fmt.Sprintf("%s/@%s/%s", s.cfg.Steem.ContentBaseURL, sess.Username, permlink), nil
}

// UpdateImage patches image_url on an existing deal. Unknown permlinks are
// a silent no-op, matching the store contract.
func (s *DealService) UpdateImage(ctx context.Context, permlink, imageURL string) error {
	s.log.Info().Str("permlink", permlink).Msg("updating deal image")
	return s.store.PatchImage(ctx, permlink, imageURL)
}

// GetByPermlink looks up a single stored deal.
func (s *DealService) GetByPermlink(ctx context.Context, permlink string) (models.Deal, error) {
	return s.store.GetByPermlink(ctx, permlink)
}

// ListActive returns unexpired deals, optionally filtered.
func (s *DealService) ListActive(ctx context.Context, filter models.DealFilter) ([]models.Deal, error) {
	return s.store.ListActive(ctx, filter)
}

// ActiveBrands reads the cached brand projection, falling back to the
// store when the snapshot is missing or stale.
func (s *DealService) ActiveBrands(ctx context.Context) ([]string, error) {
	return s.cachedProjection(ctx, BrandsCacheKey, s.store.DistinctBrands)
}

// ActiveCountryCodes reads the cached country projection with the same
// fallback behavior.
func (s *DealService) ActiveCountryCodes(ctx context.Context) ([]string, error) {
	return s.cachedProjection(ctx, CountriesCacheKey, s.store.DistinctCountryCodes)
}

func (s *DealService) cachedProjection(ctx context.Context, key string, query func(context.Context, bool) ([]string, error)) ([]string, error) {
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var values []string
			if jsonErr := json.Unmarshal(payload, &values); jsonErr == nil {
				return values, nil
			}
		}
	}
	return query(ctx, true)
}
