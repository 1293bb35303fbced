package service

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/stat"
)

// Background 图层的底色极性
type Background int

const (
	BackgroundWhite Background = iota
	BackgroundBlack
)

func (b Background) String() string {
	if b == BackgroundBlack {
		return "black"
	}
	return "white"
}

// Luma 返回 8 位灰度值（ITU-R 601-2），透明通道被忽略
func Luma(c color.Color) uint8 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return luma8(n.R, n.G, n.B)
}

func luma8(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}

// ClassifyBackground 取四个角的灰度平均值，低于 128 为黑底，否则为白底
func ClassifyBackground(img image.Image) Background {
	b := img.Bounds()
	if b.Empty() {
		return BackgroundWhite
	}
	sum := int(Luma(img.At(b.Min.X, b.Min.Y))) +
		int(Luma(img.At(b.Max.X-1, b.Min.Y))) +
		int(Luma(img.At(b.Min.X, b.Max.Y-1))) +
		int(Luma(img.At(b.Max.X-1, b.Max.Y-1)))
	if float64(sum)/4 < 128 {
		return BackgroundBlack
	}
	return BackgroundWhite
}

// AverageBrightness 计算整幅图像的平均灰度（逐行均值再取均值）
func AverageBrightness(img *image.NRGBA) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	rows := make([]float64, b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		sum := 0
		i := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += int(luma8(img.Pix[i], img.Pix[i+1], img.Pix[i+2]))
			i += 4
		}
		rows[y-b.Min.Y] = float64(sum) / float64(b.Dx())
	}
	return stat.Mean(rows, nil)
}
