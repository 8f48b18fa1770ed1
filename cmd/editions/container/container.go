package container

import (
	"github.com/redis/go-redis/v9"

	"github.com/arthaus/editions/cmd/editions/repository"
	"github.com/arthaus/editions/cmd/editions/service"
	"github.com/arthaus/editions/common/bootstrap"
	"github.com/arthaus/editions/common/lock"
	rediscommon "github.com/arthaus/editions/common/redis"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	Redis      *rediscommon.Client
	RedisRaw   *redis.Client
	Locker     *lock.EditionLocker

	// Repositories
	UnitRepo     *repository.UnitRepository
	EditionRepo  *repository.EditionRepository
	TransferRepo *repository.TransferRepository

	// Services
	CertificateService *service.CertificateService
	TransferService    *service.TransferService
	Reconciler         *service.Reconciler
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	// Create Redis client (raw)
	redisRaw := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Wrap with common redis client for instrumentation and common operations
	redisClient := rediscommon.NewClient(redisRaw, components.Logger)

	// Per-edition reconcile lock
	locker := lock.NewEditionLocker(
		redisClient,
		cfg.Reconcile.LockTTL,
		cfg.Reconcile.LockRetries,
		cfg.Reconcile.LockBackoff,
		components.Logger,
	)

	// Initialize repositories
	unitRepo := repository.NewUnitRepository(components.DB)
	editionRepo := repository.NewEditionRepository(components.DB, components.Cache, cfg.Reconcile.EditionCache)
	transferRepo := repository.NewTransferRepository(components.DB, unitRepo)

	// Initialize services (bottom-up: dependencies first)
	certificateService := service.NewCertificateService(
		unitRepo,
		cfg.Certificates.BaseURL,
		components.Logger,
		components.Telemetry,
	)
	transferService := service.NewTransferService(
		unitRepo,
		transferRepo,
		components.Logger,
		components.Telemetry,
	)
	reconciler := service.NewReconciler(
		unitRepo,
		editionRepo,
		certificateService,
		locker,
		components.Logger,
		components.Telemetry,
	)

	return &Container{
		Components:         components,
		Redis:              redisClient,
		RedisRaw:           redisRaw,
		Locker:             locker,
		UnitRepo:           unitRepo,
		EditionRepo:        editionRepo,
		TransferRepo:       transferRepo,
		CertificateService: certificateService,
		TransferService:    transferService,
		Reconciler:         reconciler,
	}, nil
}
