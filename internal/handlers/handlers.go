package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/blockdeals/blockdeals/internal/config"
	"github.com/blockdeals/blockdeals/internal/identity"
	"github.com/blockdeals/blockdeals/internal/middleware"
	"github.com/blockdeals/blockdeals/internal/models"
	"github.com/blockdeals/blockdeals/internal/publisher"
	"github.com/blockdeals/blockdeals/internal/repository"
	"github.com/blockdeals/blockdeals/internal/service"
)

// dealService is the slice of DealService the handlers use; narrowed to an
// interface so handler tests can run against fakes.
type dealService interface {
	Submit(ctx context.Context, sess models.Session, form models.DealForm) (string, error)
	UpdateImage(ctx context.Context, permlink, imageURL string) error
	ListActive(ctx context.Context, filter models.DealFilter) ([]models.Deal, error)
	GetByPermlink(ctx context.Context, permlink string) (models.Deal, error)
	ActiveBrands(ctx context.Context) ([]string, error)
	ActiveCountryCodes(ctx context.Context) ([]string, error)
}

type authService interface {
	HandleCallback(ctx context.Context, token, username string, expiresIn int) (service.LoginResult, error)
	Reverify(ctx context.Context, session models.Session) (models.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

type sessionStore interface {
	Save(ctx context.Context, session models.Session) error
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	deals    dealService
	auth     authService
	sessions sessionStore
	db       *pgxpool.Pool
	cache    *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) (HandlerSet, *repository.SessionRepository) {
	dealRepo := repository.NewDealRepository(db)
	sessionRepo := repository.NewSessionRepository(cache)
	verifier := identity.NewClient(cfg.Identity, log)
	pub := publisher.New(cfg.Steem, log)

	deals := service.NewDealService(dealRepo, pub, verifier, cache, cfg, log)
	auth := service.NewAuthService(sessionRepo, verifier, cfg, log)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		deals:    deals,
		auth:     auth,
		sessions: sessionRepo,
		db:       db,
		cache:    cache,
	}, sessionRepo
}

func (h HandlerSet) Register(router *gin.Engine, sessionRepo *repository.SessionRepository) {
	router.Use(middleware.Session(h.cfg, sessionRepo, h.log))

	router.GET("/healthz", h.Health)

	router.GET("/", h.Index)
	router.GET("/countries", h.Countries)
	router.GET("/country/:country", h.CountryDeals)
	router.GET("/brand/:brand", h.BrandDeals)
	router.GET("/deal/:permlink", h.DealByPermlink)

	router.GET("/complete/sc/", h.OAuthCallback)
	router.GET("/auth", h.Reverify)
	router.GET("/logout", h.Logout)

	router.GET("/submit", h.SubmitPage)
	router.POST("/deal", h.SubmitDeal)
	router.POST("/update/:permlink", h.UpdateImage)
}
