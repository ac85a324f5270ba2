package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/club-course-api/api/swagger"
	"github.com/noah-isme/club-course-api/internal/dto"
	"github.com/noah-isme/club-course-api/internal/handler"
	internalmiddleware "github.com/noah-isme/club-course-api/internal/middleware"
	"github.com/noah-isme/club-course-api/internal/models"
	"github.com/noah-isme/club-course-api/internal/repository"
	"github.com/noah-isme/club-course-api/internal/repository/memory"
	"github.com/noah-isme/club-course-api/internal/service"
	"github.com/noah-isme/club-course-api/pkg/cache"
	"github.com/noah-isme/club-course-api/pkg/config"
	"github.com/noah-isme/club-course-api/pkg/database"
	"github.com/noah-isme/club-course-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/club-course-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/club-course-api/pkg/middleware/requestid"
)

// @title Club Course API
// @version 1.0.0
// @description Course activities and course selection for university clubs
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type identityStore interface {
	FindPersonByUserID(ctx context.Context, userID string) (*models.Person, error)
	FindOrganizationByUserID(ctx context.Context, userID string) (*models.Organization, error)
	FindOrganizationByID(ctx context.Context, id string) (*models.Organization, error)
	IsMember(ctx context.Context, organizationID, personID string) (bool, error)
}

type activityStore interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	ListByOrganization(ctx context.Context, organizationID string, category models.ActivityCategory) ([]models.Activity, error)
	ListDue(ctx context.Context, now time.Time) ([]models.Activity, error)
}

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListActive(ctx context.Context, year int, semester string) ([]models.Course, error)
	ListSelectedByPerson(ctx context.Context, personID string) ([]models.CourseParticipant, error)
	ListRoster(ctx context.Context, courseID string) ([]models.CourseParticipantDetail, error)
}

type stores struct {
	identities identityStore
	activities activityStore
	courses    courseStore
	tx         repository.TxRunner
	checks     map[string]handler.ReadinessCheck
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to open store", "driver", cfg.StoreDriver, "error", err)
	}
	defer st.close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Catalog.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("catalog cache disabled", "error", err)
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, logr)
			st.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	validate := validator.New()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	identitySvc := service.NewIdentityService(st.identities, service.IdentityConfig{
		CourseOrganizationType:  cfg.Courses.OrganizationTypeName,
		PlaceholderOrganization: cfg.Courses.PlaceholderOrganization,
	}, logr)
	registrationSvc := service.NewRegistrationService(st.tx, cacheSvc, metrics, logr)
	activitySvc := service.NewActivityService(st.activities, identitySvc, registrationSvc, st.tx, validate, metrics, logr)
	catalogSvc := service.NewCatalogService(st.courses, st.activities, cacheSvc, cfg.Catalog.CacheTTL, logr)
	exportSvc := service.NewExportService(st.courses, identitySvc, logr, nil, nil)

	if cfg.Advancer.Enabled {
		advancer := service.NewAdvancerService(st.activities, activitySvc, service.AdvancerConfig{
			Interval: cfg.Advancer.Interval,
			Workers:  cfg.Advancer.Workers,
		}, logr)
		advancer.Start(ctx)
		defer advancer.Stop()
	}

	snapshot := func() dto.SemesterSnapshot {
		return dto.SemesterSnapshot{Year: cfg.Courses.Year, Semester: cfg.Courses.Semester}
	}
	activityHandler := handler.NewCourseActivityHandler(activitySvc)
	courseHandler := handler.NewCourseHandler(catalogSvc, registrationSvc, exportSvc, identitySvc, snapshot, validate)
	metricsHandler := handler.NewMetricsHandler(metrics, st.checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerAPIRoutes(r.Group(cfg.APIPrefix), apiRoutes{
		tokens:     authSvc,
		principals: identitySvc,
		activities: activityHandler,
		courses:    courseHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		seedDemo(store, cfg)
		logr.Sugar().Infow("using in-memory store with demo data")
		return &stores{
			identities: store.Identities(),
			activities: store.Activities(),
			courses:    store.Courses(),
			tx:         store,
			checks:     map[string]handler.ReadinessCheck{},
			close:      func() {},
		}, nil
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return postgresStores(db), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func postgresStores(db *sqlx.DB) *stores {
	return &stores{
		identities: repository.NewIdentityRepository(db),
		activities: repository.NewActivityRepository(db),
		courses:    repository.NewCourseRepository(db),
		tx:         repository.NewTxManager(db),
		checks: map[string]handler.ReadinessCheck{
			"database": db.PingContext,
		},
		close: func() { _ = db.Close() },
	}
}
