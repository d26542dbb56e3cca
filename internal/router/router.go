package router

import (
	"net/http"
	"time"

	"github.com/stanmart1/rest-empire-sub000/config"
	"github.com/stanmart1/rest-empire-sub000/internal/handler"
	"github.com/stanmart1/rest-empire-sub000/internal/middleware"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"
	"github.com/stanmart1/rest-empire-sub000/internal/service"
	"github.com/stanmart1/rest-empire-sub000/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps are the long-lived components wired in main and shared with the
// background sweeper.
type Deps struct {
	Hub      *ws.Hub
	Sweeper  *service.Sweeper
	Unilevel *service.UnilevelService
}

func Setup(cfg *config.Config, db *gorm.DB) (*gin.Engine, *Deps) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	rankRepo := repository.NewRankRepository(db)
	bonusRepo := repository.NewBonusRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	integrityRepo := repository.NewIntegrityRepository(db)

	hub := ws.NewHub()

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	snapshotSvc := service.NewSnapshotService(settingRepo, rankRepo)
	turnoverSvc := service.NewTurnoverService(userRepo, txRepo, integrityRepo)
	rankSvc := service.NewRankService(userRepo, bonusRepo, turnoverSvc, snapshotSvc, hub, cfg.Engine.DefaultCurrency)
	unilevelSvc := service.NewUnilevelService(userRepo, bonusRepo, attemptRepo, integrityRepo, snapshotSvc, hub)
	infinitySvc := service.NewInfinityService(bonusRepo, turnoverSvc, snapshotSvc, hub, cfg.Engine.DefaultCurrency)
	sweeper := service.NewSweeper(rankSvc, infinitySvc, cfg.Engine.SweepInterval)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	statusHandler := handler.NewStatusHandler(rankSvc)
	bonusHandler := handler.NewBonusHandler(bonusRepo)
	teamHandler := handler.NewTeamHandler(userRepo, turnoverSvc)
	eventHandler := handler.NewEventHandler(cfg, txRepo, userRepo, unilevelSvc)
	adminHandler := handler.NewAdminHandler(rankRepo, settingRepo, integrityRepo, userRepo, sweeper)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/status", statusHandler.GetStatus)
			me.GET("/team", teamHandler.GetTeam)
			me.GET("/bonuses", bonusHandler.List)
			me.GET("/bonuses/summary", bonusHandler.Summary)
		}

		api.POST("/events", eventHandler.Ingest)

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/ranks", adminHandler.ListRanks)
			admin.PUT("/ranks", adminHandler.BulkUpdateRanks)
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.POST("/recompute", adminHandler.Recompute)
			admin.GET("/integrity-flags", adminHandler.ListIntegrityFlags)
			admin.POST("/integrity-flags/:id/resolve", adminHandler.ResolveIntegrityFlag)
			admin.POST("/users/:id/sponsor", adminHandler.ReassignSponsor)
		}
	}

	r.GET("/ws/bonuses", ws.UpgradeBonusWS(&cfg.JWT, hub))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r, &Deps{Hub: hub, Sweeper: sweeper, Unilevel: unilevelSvc}
}
