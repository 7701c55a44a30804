package provider

import (
	"github.com/investorsdeaal/referral-engine/internal/authz"
	"github.com/investorsdeaal/referral-engine/internal/cache"
	"github.com/investorsdeaal/referral-engine/internal/config"
	"github.com/investorsdeaal/referral-engine/internal/logger"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/queue"
	"github.com/investorsdeaal/referral-engine/internal/repository"
	"github.com/investorsdeaal/referral-engine/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo     repository.AdminRepository
	AssociateRepo repository.AssociateRepository
	RateTableRepo repository.RateTableRepository
	LedgerRepo    repository.LedgerRepository

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	ReferralService   *service.ReferralService
	RateService       *service.RateService
	CommissionService *service.CommissionService
	PayoutService     *service.PayoutService
	EarningsService   *service.EarningsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AssociateRepo = repository.NewAssociateRepository(db)
	c.RateTableRepo = repository.NewRateTableRepository(db)
	c.LedgerRepo = repository.NewLedgerRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo, c.AssociateRepo)
	c.ReferralService = service.NewReferralService(c.AssociateRepo, c.QueueClient, c.Config.Engine.NetworkTreeMaxDepth)
	c.RateService = service.NewRateService(c.RateTableRepo)
	c.CommissionService = service.NewCommissionService(c.LedgerRepo, c.AssociateRepo, c.ReferralService, c.RateService)
	c.PayoutService = service.NewPayoutService(c.LedgerRepo)
	c.EarningsService = service.NewEarningsService(c.LedgerRepo, c.AssociateRepo)

	if c.Config.Engine.SeedRateTable {
		if err := c.RateService.EnsureDefaultVersion(); err != nil {
			logger.Warnw("provider_seed_rate_table_failed", "error", err)
		}
	}
}
