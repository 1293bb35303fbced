package main

import (
	"context"
	"net/http"
	"os"

	"github.com/HerbertGao/PicStitch/config"
	"github.com/HerbertGao/PicStitch/handler"
	"github.com/HerbertGao/PicStitch/middleware"
	"github.com/HerbertGao/PicStitch/service"
	"github.com/HerbertGao/PicStitch/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ServeCmd struct{}

func (c *ServeCmd) Run(cfg *config.Config) error {
	utils.Logger.Info("starting PicStitch server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 确保上传与输出目录存在
	for _, dir := range []string{cfg.Upload.UploadDir, cfg.Upload.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	// 初始化Redis，连接失败时禁用缓存
	redisService := service.NewRedisService(&cfg.Redis)
	if err := redisService.Ping(context.Background()); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
		_ = redisService.Close()
		redisService = nil
	} else {
		utils.Logger.Info("redis connected successfully")
		defer redisService.Close()
	}

	gin.SetMode(cfg.Server.Mode)
	r := newRouter(cfg, redisService)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	return srv.ListenAndServe()
}

// newRouter 创建路由
func newRouter(cfg *config.Config, redisService *service.RedisService) *gin.Engine {
	splitHandler := handler.NewSplitHandler(cfg, redisService, service.NewSplitService(&cfg.Split))
	mergeHandler := handler.NewMergeHandler(service.NewReconstructor(&cfg.Merge), cfg.Upload.MaxSize)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 分割结果文件
	r.Static("/output", cfg.Upload.OutputDir)

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	// API路由
	api := r.Group("/api/v1")
	{
		api.POST("/split", splitHandler.Split)
		api.GET("/split/:md5/:seed", splitHandler.GetByMD5)
		api.POST("/merge", mergeHandler.Merge)
	}

	return r
}
