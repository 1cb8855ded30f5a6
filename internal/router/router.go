package router

import (
	"fmt"
	"strings"

	"github.com/qrcard-next/internal/cache"
	"github.com/qrcard-next/internal/config"
	publichandlers "github.com/qrcard-next/internal/http/handlers/public"
	"github.com/qrcard-next/internal/http/response"
	"github.com/qrcard-next/internal/logger"
	"github.com/qrcard-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisClient := cache.Client()
	uploadRule := buildRateLimitRule(cfg.Redis.Prefix, "upload", cfg.Security.UploadRateLimit)
	generateRule := buildRateLimitRule(cfg.Redis.Prefix, "generate", cfg.Security.GenerateRateLimit)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/upload", RateLimitMiddleware(redisClient, uploadRule, KeyByIP), publicHandler.Upload)

		apiV1.POST("/batches/:batchId/mapping", publicHandler.ApplyMapping)
		apiV1.POST("/batches/:batchId/generate", RateLimitMiddleware(redisClient, generateRule, KeyByIP), publicHandler.Generate)
		apiV1.GET("/batches/:batchId", publicHandler.GetBatch)
		apiV1.GET("/batches/:batchId/download", publicHandler.DownloadBundle)
		apiV1.DELETE("/batches/:batchId/contacts", publicHandler.DeleteContacts)

		apiV1.GET("/contacts/:contactId", publicHandler.GetContact)
		apiV1.GET("/contacts/:contactId/vcard", publicHandler.DownloadVCard)
		apiV1.GET("/qr/:contactId/download", publicHandler.DownloadQR)

		apiV1.GET("/template/download", publicHandler.DownloadTemplate)
	}

	return r
}

// buildRateLimitRule 按操作名构造独立计数窗口的限流规则
func buildRateLimitRule(redisPrefix, action string, cfg config.RateLimitConfig) RateLimitRule {
	prefix := strings.TrimSpace(redisPrefix)
	if prefix == "" {
		prefix = "qc"
	}
	return RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:%s", prefix, action),
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxRequests,
	}
}
