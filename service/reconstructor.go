package service

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/HerbertGao/PicStitch/config"
	"github.com/HerbertGao/PicStitch/utils"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Reconstructor 负责从一组无标记的图片中还原原图
type Reconstructor struct {
	useManifest bool
}

func NewReconstructor(cfg *config.MergeConfig) *Reconstructor {
	return &Reconstructor{useManifest: cfg.UseManifest}
}

// MergeResult 合成结果
type MergeResult struct {
	Image        *image.NRGBA
	Base         string
	Layers       []string
	FromManifest bool
}

// ListImages 列出 dir 中可识别的图片文件名，按文件名升序
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// MergeDir 还原 dir 中的图片集合。存在清单且启用时按清单确定底图，
// 否则以平均亮度最低者为底图。
func (r *Reconstructor) MergeDir(dir string) (*MergeResult, error) {
	names, err := ListImages(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImagesFound, dir)
	}

	if r.useManifest {
		manifest, err := ReadManifest(dir)
		if err != nil {
			utils.Logger.Warn("ignoring unreadable manifest",
				zap.String("dir", dir), zap.Error(err))
		} else if manifest != nil {
			return r.mergeFromManifest(dir, manifest.Base, manifest.Layers)
		}
	}

	images := make([]*image.NRGBA, len(names))
	baseIdx := 0
	minBrightness := 0.0
	for i, name := range names {
		img, err := LoadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailure, name, err)
		}
		images[i] = img

		brightness := AverageBrightness(img)
		utils.Logger.Debug("image brightness",
			zap.String("file", name),
			zap.Float64("brightness", brightness))
		if i == 0 || brightness < minBrightness {
			baseIdx = i
			minBrightness = brightness
		}
	}

	utils.Logger.Info("detected base image", zap.String("base", names[baseIdx]))

	var layers []*image.NRGBA
	var layerNames []string
	for i, name := range names {
		if i == baseIdx {
			continue
		}
		layers = append(layers, images[i])
		layerNames = append(layerNames, name)
	}

	merged, err := Merge(images[baseIdx], layers)
	if err != nil {
		return nil, err
	}

	return &MergeResult{
		Image:  merged,
		Base:   names[baseIdx],
		Layers: layerNames,
	}, nil
}

func (r *Reconstructor) mergeFromManifest(dir, baseName string, layerNames []string) (*MergeResult, error) {
	utils.Logger.Info("using manifest", zap.String("base", baseName))

	base, err := LoadImage(filepath.Join(dir, baseName))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailure, baseName, err)
	}

	sorted := append([]string(nil), layerNames...)
	sort.Strings(sorted)

	layers := make([]*image.NRGBA, 0, len(sorted))
	for _, name := range sorted {
		img, err := LoadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailure, name, err)
		}
		layers = append(layers, img)
	}

	merged, err := Merge(base, layers)
	if err != nil {
		return nil, err
	}

	return &MergeResult{
		Image:        merged,
		Base:         baseName,
		Layers:       sorted,
		FromManifest: true,
	}, nil
}

// MergeToFile 还原 dir 并写出到 outPath
func (r *Reconstructor) MergeToFile(dir, outPath string) (*MergeResult, error) {
	result, err := r.MergeDir(dir)
	if err != nil {
		return nil, err
	}
	if err := SaveImage(result.Image, outPath); err != nil {
		return nil, err
	}
	utils.Logger.Info("merge finished",
		zap.String("output", outPath),
		zap.Int("layers", len(result.Layers)),
		zap.Bool("from_manifest", result.FromManifest))
	return result, nil
}

// Merge 以 base 为起点依次叠加各层：白底取逐通道最小值，黑底取最大值。
// 不修改输入图像。
func Merge(base *image.NRGBA, layers []*image.NRGBA) (*image.NRGBA, error) {
	acc := imaging.Clone(base)
	for i, layer := range layers {
		if layer.Bounds().Size() != acc.Bounds().Size() {
			return nil, fmt.Errorf("%w: layer %d is %v, base is %v",
				ErrSizeMismatch, i, layer.Bounds().Size(), acc.Bounds().Size())
		}
		switch ClassifyBackground(layer) {
		case BackgroundBlack:
			blend(acc, layer, lighter)
		default:
			blend(acc, layer, darker)
		}
	}
	return acc, nil
}

// blend 逐像素逐通道合并 src 到 dst，dst 与 src 尺寸相同且原点为 (0,0)
func blend(dst, src *image.NRGBA, op func(a, b uint8) uint8) {
	h := dst.Bounds().Dy()
	w := dst.Bounds().Dx()
	for y := 0; y < h; y++ {
		i := dst.PixOffset(0, y)
		j := src.PixOffset(src.Bounds().Min.X, src.Bounds().Min.Y+y)
		for x := 0; x < w; x++ {
			dst.Pix[i+0] = op(dst.Pix[i+0], src.Pix[j+0])
			dst.Pix[i+1] = op(dst.Pix[i+1], src.Pix[j+1])
			dst.Pix[i+2] = op(dst.Pix[i+2], src.Pix[j+2])
			i += 4
			j += 4
		}
	}
}

func darker(a, b uint8) uint8 { return min(a, b) }

func lighter(a, b uint8) uint8 { return max(a, b) }
