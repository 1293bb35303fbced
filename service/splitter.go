package service

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/HerbertGao/PicStitch/config"
	"github.com/HerbertGao/PicStitch/model"
	"github.com/HerbertGao/PicStitch/utils"
	"go.uber.org/zap"
)

const BaseName = "base.png"

// LayerName 返回第 i 层的文件名，如 circle_00.png
func LayerName(i int) string {
	return fmt.Sprintf("circle_%02d.png", i)
}

// SplitService 负责分割图片并写出 base.png 与 circle_*.png
type SplitService struct {
	sampler      *CircleSampler
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewSplitService(cfg *config.SplitConfig) *SplitService {
	return &SplitService{
		sampler: NewCircleSampler(SplitParams{
			Layers:          cfg.Layers,
			CirclesPerLayer: cfg.CirclesPerLayer,
			RadiusDivisor:   cfg.RadiusDivisor,
		}),
		semaphore:    make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout: time.Duration(cfg.QueueTimeout) * time.Second,
	}
}

func (s *SplitService) Params() SplitParams {
	return s.sampler.Params()
}

// ProcessImage 在并发限制下分割图片，排队超时返回错误。
// queueTimeout 非正时一直排队，直到 ctx 结束。
func (s *SplitService) ProcessImage(ctx context.Context, srcPath, outDir string, seed int64) (*model.SplitResult, error) {
	if s.queueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queueTimeout)
		defer cancel()
	}

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-ctx.Done():
		return nil, fmt.Errorf("split queue is full, retry later")
	}

	return s.SplitFile(srcPath, outDir, seed)
}

// SplitFile 读取 srcPath，以 seed 初始化随机源进行分割，结果写入 outDir
func (s *SplitService) SplitFile(srcPath, outDir string, seed int64) (*model.SplitResult, error) {
	startTime := time.Now()

	src, err := LoadImage(srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputUnreadable, srcPath, err)
	}

	width := src.Bounds().Dx()
	height := src.Bounds().Dy()

	utils.Logger.Info("splitting image",
		zap.String("src", srcPath),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int64("seed", seed))

	set := s.sampler.Split(src, rand.New(rand.NewSource(seed)))

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}

	layerFiles := make([]string, len(set.Layers))
	for i, layer := range set.Layers {
		layerFiles[i] = LayerName(i)
		if err := SaveImage(layer, filepath.Join(outDir, layerFiles[i])); err != nil {
			return nil, err
		}
	}
	if err := SaveImage(set.Base, filepath.Join(outDir, BaseName)); err != nil {
		return nil, err
	}

	params := s.sampler.Params()
	manifest := &model.Manifest{
		Base:            BaseName,
		Layers:          layerFiles,
		LayerCount:      len(layerFiles),
		CirclesPerLayer: params.CirclesPerLayer,
		Radius:          set.Radius,
		Seed:            seed,
		Width:           width,
		Height:          height,
	}
	if err := WriteManifest(outDir, manifest); err != nil {
		return nil, err
	}

	result := &model.SplitResult{
		Width:           width,
		Height:          height,
		Seed:            seed,
		Radius:          set.Radius,
		Layers:          len(layerFiles),
		CirclesPerLayer: params.CirclesPerLayer,
		Coverage:        set.Coverage(),
		Dir:             outDir,
		Base:            BaseName,
		LayerFiles:      layerFiles,
		Timestamp:       time.Now().Unix(),
	}

	utils.Logger.Info("split finished",
		zap.String("dir", outDir),
		zap.Int("layers", result.Layers),
		zap.Int("radius", result.Radius),
		zap.Float64("coverage", result.Coverage),
		zap.Duration("duration", time.Since(startTime)))

	return result, nil
}
