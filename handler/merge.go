package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/HerbertGao/PicStitch/model"
	"github.com/HerbertGao/PicStitch/service"
	"github.com/HerbertGao/PicStitch/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MergeHandler struct {
	reconstructor *service.Reconstructor
	maxSize       int64
}

func NewMergeHandler(reconstructor *service.Reconstructor, maxSize int64) *MergeHandler {
	return &MergeHandler{
		reconstructor: reconstructor,
		maxSize:       maxSize,
	}
}

// Merge 接收一组图片（字段 images），还原后以 PNG 返回
func (h *MergeHandler) Merge(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return
	}

	tmpDir, err := os.MkdirTemp("", "picstitch-merge-")
	if err != nil {
		utils.Logger.Error("failed to create temp dir", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "创建临时目录失败",
			Error:   err.Error(),
		})
		return
	}
	defer os.RemoveAll(tmpDir)

	seen := make(map[string]bool)
	for _, file := range form.File["images"] {
		name := filepath.Base(file.Filename)
		if seen[name] {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Success: false,
				Message: "文件名重复",
				Error:   name,
			})
			return
		}
		seen[name] = true

		if file.Size > h.maxSize {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Success: false,
				Message: "文件大小超过限制",
				Error:   file.Filename,
			})
			return
		}
		dst := filepath.Join(tmpDir, name)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{
				Success: false,
				Message: "保存文件失败",
				Error:   err.Error(),
			})
			return
		}
	}

	result, err := h.reconstructor.MergeDir(tmpDir)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNoImagesFound) {
			utils.Logger.Warn("no images to merge")
			status = http.StatusBadRequest
		} else if errorsIsInput(err) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, model.ErrorResponse{
			Success: false,
			Message: "图片合成失败",
			Error:   err.Error(),
		})
		return
	}

	utils.Logger.Info("merge request finished",
		zap.String("base", result.Base),
		zap.Int("layers", len(result.Layers)))

	c.Header("X-Base-Image", result.Base)
	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := imaging.Encode(c.Writer, result.Image, imaging.PNG); err != nil {
		utils.Logger.Error("failed to encode merged image", zap.Error(err))
	}
}

// errorsIsInput 判断是否为输入图片本身的问题
func errorsIsInput(err error) bool {
	return errors.Is(err, service.ErrInputUnreadable) ||
		errors.Is(err, service.ErrDecodeFailure) ||
		errors.Is(err, service.ErrSizeMismatch)
}
