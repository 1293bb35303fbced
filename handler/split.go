package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HerbertGao/PicStitch/config"
	"github.com/HerbertGao/PicStitch/model"
	"github.com/HerbertGao/PicStitch/service"
	"github.com/HerbertGao/PicStitch/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SplitHandler struct {
	cfg          *config.Config
	redisService *service.RedisService
	splitService *service.SplitService
}

func NewSplitHandler(cfg *config.Config, redis *service.RedisService, split *service.SplitService) *SplitHandler {
	return &SplitHandler{
		cfg:          cfg,
		redisService: redis,
		splitService: split,
	}
}

// Split 处理图片上传并分割
func (h *SplitHandler) Split(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return
	}

	// 验证文件大小
	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024)),
		})
		return
	}

	// 验证文件类型
	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型，仅支持 JPEG/PNG",
		})
		return
	}

	seed := utils.GenerateID()
	if raw := c.PostForm("seed"); raw != "" {
		seed, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Success: false,
				Message: "seed 参数无效",
				Error:   err.Error(),
			})
			return
		}
	}

	// 生成文件名
	ext := filepath.Ext(file.Filename)
	filename := fmt.Sprintf("%d%s", utils.GenerateID(), ext)
	savePath := filepath.Join(h.cfg.Upload.UploadDir, filename)

	// 保存文件
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		utils.Logger.Error("failed to save file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "保存文件失败",
			Error:   err.Error(),
		})
		return
	}

	// 确保文件在处理完成后被删除（如果配置启用）
	if h.cfg.Split.CleanupTempFiles {
		defer func() {
			if err := os.Remove(savePath); err != nil {
				utils.Logger.Warn("failed to delete temp file",
					zap.String("file", savePath),
					zap.Error(err))
			} else {
				utils.Logger.Debug("temp file deleted",
					zap.String("file", savePath))
			}
		}()
	}

	// 计算MD5
	md5, err := utils.FileMD5(savePath)
	if err != nil {
		utils.Logger.Error("failed to calculate md5", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "计算文件哈希失败",
			Error:   err.Error(),
		})
		return
	}

	utils.Logger.Info("file uploaded",
		zap.String("filename", filename),
		zap.String("md5", md5),
		zap.Int64("size", file.Size),
		zap.Int64("seed", seed))

	// 检查缓存（同一图片、种子与参数的结果相同）
	ctx := c.Request.Context()
	cacheKey := service.SplitKey(md5, seed, h.splitService.Params())

	cachedResult, err := h.redisService.GetSplitResult(ctx, cacheKey)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}

	if cachedResult != nil {
		if _, err := os.Stat(cachedResult.Dir); err == nil {
			utils.Logger.Info("cache hit", zap.String("cache_key", cacheKey))
			c.JSON(http.StatusOK, model.SplitResponse{
				Success: true,
				Message: "处理成功（来自缓存）",
				Data:    cachedResult,
			})
			return
		}
	}

	// 分割图片
	outDir := filepath.Join(h.cfg.Upload.OutputDir, fmt.Sprintf("%s-%d", md5, seed))
	result, err := h.splitService.ProcessImage(ctx, savePath, outDir, seed)
	if err != nil {
		utils.Logger.Error("failed to split image", zap.Error(err))
		status := http.StatusInternalServerError
		if errorsIsInput(err) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, model.ErrorResponse{
			Success: false,
			Message: "图片分割失败",
			Error:   err.Error(),
		})
		return
	}
	result.MD5 = md5

	// 保存到缓存
	if err := h.redisService.SetSplitResult(ctx, cacheKey, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	c.JSON(http.StatusOK, model.SplitResponse{
		Success: true,
		Message: "处理成功",
		Data:    result,
	})
}

// GetByMD5 根据MD5与种子获取分割结果
func (h *SplitHandler) GetByMD5(c *gin.Context) {
	md5 := c.Param("md5")
	seed, err := strconv.ParseInt(c.Param("seed"), 10, 64)
	if md5 == "" || err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "MD5或seed参数无效",
		})
		return
	}

	ctx := c.Request.Context()
	result, err := h.redisService.GetSplitResult(ctx, service.SplitKey(md5, seed, h.splitService.Params()))
	if err != nil {
		utils.Logger.Error("failed to get split result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "查询失败",
			Error:   err.Error(),
		})
		return
	}

	if result == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "未找到该图片的分割结果",
		})
		return
	}

	c.JSON(http.StatusOK, model.SplitResponse{
		Success: true,
		Message: "查询成功",
		Data:    result,
	})
}

func (h *SplitHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
