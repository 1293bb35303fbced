package service

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// decoders 合成时识别的栅格格式（扩展名小写）及其解码器。
// 按扩展名直接调用解码器，不经过 image.Decode 的格式注册表：
// tga 注册的魔数为空，会抢先匹配所有输入。
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".bmp":  bmp.Decode,
	".gif":  gif.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".webp": webp.Decode,
	".tga":  tga.Decode,
}

// IsImageFile 按扩展名判断是否为可识别的图片，大小写不敏感
func IsImageFile(name string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(name))]
	return ok
}

// LoadImage 读取图片并转换为不透明的 NRGBA，原点位于 (0,0)
func LoadImage(path string) (*image.NRGBA, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported image format %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := decode(f)
	if err != nil {
		return nil, err
	}
	return toOpaque(img), nil
}

// toOpaque 复制图像并丢弃透明通道
func toOpaque(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// SaveImage 按扩展名选择编码器保存图片，.webp 使用无损 WebP
func SaveImage(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrOutputWrite, err)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		return encodeFile(path, func(w io.Writer) error { return nativewebp.Encode(w, img, nil) })
	case ".tga":
		return encodeFile(path, func(w io.Writer) error { return tga.Encode(w, imaging.Clone(img)) })
	}

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	return nil
}

func encodeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("%w: encode %s: %v", ErrOutputWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	return nil
}
