package v1

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/canopylabs/treeledger/internal/authority"
	"github.com/canopylabs/treeledger/internal/certificates"
	"github.com/canopylabs/treeledger/internal/config"
	"github.com/canopylabs/treeledger/internal/engagement"
	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/internal/forest"
	"github.com/canopylabs/treeledger/internal/purchases"
	"github.com/canopylabs/treeledger/internal/rates"
	"github.com/canopylabs/treeledger/internal/settings"
	"github.com/canopylabs/treeledger/internal/treasury"
	"github.com/canopylabs/treeledger/pkg/clock"
)

// API holds the wired ledger modules.
type API struct {
	Hub       *events.Hub
	Events    *events.Service
	Authority *authority.Service
	Settings  *settings.Service
	Purchases purchases.Service
	Certs     certificates.Service
	Engage    engagement.Service
	Forest    forest.Service
	Treasury  treasury.Service
	Rates     rates.Service

	eventsHandler    *events.Handler
	authorityHandler *authority.Handler
	settingsHandler  *settings.Handler
	purchaseHandler  *purchases.Handler
	certHandler      *certificates.Handler
	engageHandler    *engagement.Handler
	forestHandler    *forest.Handler
	treasuryHandler  *treasury.Handler
	ratesHandler     *rates.Handler
}

// lazyTreeCounter defers the forest binding: watering needs the tree count
// and redemption needs the points wallet, so the two services reference each
// other. The engagement service is built against this holder and the real
// forest service is slotted in afterwards.
type lazyTreeCounter struct {
	svc forest.Service
}

func (l *lazyTreeCounter) TotalTrees(ctx context.Context, account common.Address) (uint64, error) {
	return l.svc.TotalTrees(ctx, account)
}

// Setup wires repositories, services and handlers for every ledger module.
func Setup(db *sqlx.DB, gdb *gorm.DB, cfg *config.Config, mover treasury.Mover,
	rateSource rates.Source, clk clock.Clock, logger *zap.Logger) (*API, error) {

	hub := events.NewHub()
	eventSvc, err := events.NewService(gdb, hub, logger)
	if err != nil {
		return nil, err
	}

	authoritySvc := authority.NewService(
		authority.NewRepository(db),
		common.HexToAddress(cfg.Auth.Authority),
		eventSvc, logger)

	settingsSvc := settings.NewService(
		settings.NewRepository(db),
		authoritySvc,
		settings.EconomyParams{
			CooldownSeconds:      cfg.Economy.CooldownSeconds,
			MinPurchaseWei:       cfg.Economy.MinPurchaseWei,
			PointsPerAction:      cfg.Economy.PointsPerAction,
			StreakBonusPerDay:    cfg.Economy.StreakBonusPerDay,
			MaxStreakBonusDays:   cfg.Economy.MaxStreakBonusDays,
			PointsPerVirtualTree: cfg.Economy.PointsPerVirtualTree,
		},
		eventSvc, logger)

	treasurySvc := treasury.NewService(mover, authoritySvc, eventSvc, logger)

	purchaseSvc := purchases.NewService(
		purchases.NewRepository(db),
		settingsSvc, treasurySvc, authoritySvc, eventSvc, clk, logger)

	certSvc := certificates.NewService(
		certificates.NewRepository(db),
		purchaseSvc, authoritySvc, eventSvc, clk, logger)

	trees := &lazyTreeCounter{}
	engageSvc := engagement.NewService(
		engagement.NewRepository(db),
		settingsSvc, trees, authoritySvc, eventSvc, clk, logger)

	forestSvc := forest.NewService(
		forest.NewRepository(db),
		engageSvc, purchaseSvc, settingsSvc, eventSvc, clk, logger)
	trees.svc = forestSvc

	rateSvc := rates.NewService(rateSource, clk, logger)

	return &API{
		Hub:       hub,
		Events:    eventSvc,
		Authority: authoritySvc,
		Settings:  settingsSvc,
		Purchases: purchaseSvc,
		Certs:     certSvc,
		Engage:    engageSvc,
		Forest:    forestSvc,
		Treasury:  treasurySvc,
		Rates:     rateSvc,

		eventsHandler:    events.NewHandler(eventSvc, hub),
		authorityHandler: authority.NewHandler(authoritySvc),
		settingsHandler:  settings.NewHandler(settingsSvc),
		purchaseHandler:  purchases.NewHandler(purchaseSvc),
		certHandler:      certificates.NewHandler(certSvc),
		engageHandler:    engagement.NewHandler(engageSvc),
		forestHandler:    forest.NewHandler(forestSvc),
		treasuryHandler:  treasury.NewHandler(treasurySvc),
		ratesHandler:     rates.NewHandler(rateSvc),
	}, nil
}

// RegisterRoutes mounts every module under /api/v1. Mutating routes sit
// behind bearer auth; privileged routes additionally pass the authority
// guard inside their services.
func (a *API) RegisterRoutes(router *gin.Engine, jwtSecret string) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := router.Group("/api/v1")
	auth := authority.RequireAuth(jwtSecret)

	// Public reads, plus the token-identified mutations.
	a.authorityHandler.RegisterRoutes(v1.Group("/authority"), auth)
	a.settingsHandler.RegisterRoutes(v1.Group("/params"))
	a.eventsHandler.RegisterRoutes(v1.Group("/events"))
	a.ratesHandler.RegisterRoutes(v1.Group("/rates"))
	a.purchaseHandler.RegisterRoutes(v1.Group("/purchases"), auth)
	a.certHandler.RegisterRoutes(v1.Group("/certificates"), auth)
	a.treasuryHandler.RegisterRoutes(v1.Group("/treasury"))

	// Per-account reads.
	accounts := v1.Group("/accounts/:address")
	a.purchaseHandler.RegisterAccountRoutes(accounts)
	a.certHandler.RegisterAccountRoutes(accounts)
	a.engageHandler.RegisterAccountRoutes(accounts)
	a.forestHandler.RegisterAccountRoutes(accounts)

	// Authenticated account actions.
	authed := v1.Group("/me")
	authed.Use(authority.RequireAuth(jwtSecret))
	a.engageHandler.RegisterRoutes(authed.Group("/engagement"))
	a.forestHandler.RegisterRoutes(authed.Group("/forest"))

	// Privileged operations. The handlers resolve the caller from the token
	// and the services enforce the single-authority check.
	admin := v1.Group("/admin")
	admin.Use(authority.RequireAuth(jwtSecret))
	a.settingsHandler.RegisterAdminRoutes(admin.Group("/params"))
	a.purchaseHandler.RegisterAdminRoutes(admin)
	a.certHandler.RegisterAdminRoutes(admin)
	a.engageHandler.RegisterAdminRoutes(admin)
	a.treasuryHandler.RegisterAdminRoutes(admin.Group("/treasury"))
}

// Close releases long-lived resources.
func (a *API) Close() {
	a.Rates.Stop()
	a.Hub.Close()
}
