package provider

import (
	"github.com/qrcard-next/internal/cache"
	"github.com/qrcard-next/internal/config"
	"github.com/qrcard-next/internal/logger"
	"github.com/qrcard-next/internal/models"
	"github.com/qrcard-next/internal/qrimg"
	"github.com/qrcard-next/internal/queue"
	"github.com/qrcard-next/internal/repository"
	"github.com/qrcard-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Store       repository.Store

	// Services
	BatchService    *service.BatchService
	ArtifactService *service.ArtifactService
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

	c.initStore()
	c.initServices()

	return c
}

func (c *Container) initStore() {
	if c.Config.Database.Driver == "memory" {
		c.Store = repository.NewMemoryStore()
		return
	}
	c.Store = repository.NewGormStore(models.DB)
}

func (c *Container) initServices() {
	qrEncoder := qrimg.NewEncoder(c.Config.Artifact.QRSize, c.Config.Artifact.QRLevel)
	c.BatchService = service.NewBatchService(c.Store, c.QueueClient, qrEncoder, c.Config.Upload, c.Config.Artifact)
	c.ArtifactService = service.NewArtifactService(c.BatchService, c.Config.Artifact)
}
