package service

import (
	"image"
	"image/color"
	"math/rand"

	"github.com/disintegration/imaging"
)

const (
	DefaultLayers          = 10
	DefaultCirclesPerLayer = 400
	DefaultRadiusDivisor   = 60
)

// SplitParams 一次分割运行的参数
type SplitParams struct {
	Layers          int
	CirclesPerLayer int
	RadiusDivisor   int
}

// DefaultSplitParams 返回默认参数 {10, 400, 60}
func DefaultSplitParams() SplitParams {
	return SplitParams{
		Layers:          DefaultLayers,
		CirclesPerLayer: DefaultCirclesPerLayer,
		RadiusDivisor:   DefaultRadiusDivisor,
	}
}

// withDefaults 用默认值补齐非正的字段
func (p SplitParams) withDefaults() SplitParams {
	if p.Layers <= 0 {
		p.Layers = DefaultLayers
	}
	if p.CirclesPerLayer <= 0 {
		p.CirclesPerLayer = DefaultCirclesPerLayer
	}
	if p.RadiusDivisor <= 0 {
		p.RadiusDivisor = DefaultRadiusDivisor
	}
	return p
}

// Radius 圆半径：短边整除 divisor，最小为 1
func Radius(width, height, divisor int) int {
	if divisor <= 0 {
		divisor = DefaultRadiusDivisor
	}
	return max(1, min(width, height)/divisor)
}

// Circle 圆心坐标，可以落在画面之外
type Circle struct {
	X, Y int
}

// Mask 覆盖掩码，记录被至少一个圆覆盖的像素
type Mask struct {
	Width, Height int
	Pix           []bool
}

func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// Disc 在掩码上标记以 (cx, cy) 为圆心、半径 r 的实心圆，超出画面的部分被裁掉
func (m *Mask) Disc(cx, cy, r int) {
	r2 := r * r
	for y := max(0, cy-r); y <= min(m.Height-1, cy+r); y++ {
		dy := y - cy
		for x := max(0, cx-r); x <= min(m.Width-1, cx+r); x++ {
			dx := x - cx
			if dx*dx+dy*dy <= r2 {
				m.Pix[y*m.Width+x] = true
			}
		}
	}
}

func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x]
}

// Count 返回被覆盖的像素数
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Union 将 other 合并进 m
func (m *Mask) Union(other *Mask) {
	for i, v := range other.Pix {
		if v {
			m.Pix[i] = true
		}
	}
}

// LayerSet 一次分割的产物：底图与各层
type LayerSet struct {
	Base   *image.NRGBA
	Layers []*image.NRGBA
	Radius int
	// Covered 被任意一层的圆覆盖过的像素数
	Covered int
}

// Coverage 被覆盖像素占比
func (ls *LayerSet) Coverage() float64 {
	total := ls.Base.Bounds().Dx() * ls.Base.Bounds().Dy()
	if total == 0 {
		return 0
	}
	return float64(ls.Covered) / float64(total)
}

// CircleSampler 负责随机圆采样与挖洞
type CircleSampler struct {
	params SplitParams
}

func NewCircleSampler(params SplitParams) *CircleSampler {
	return &CircleSampler{params: params.withDefaults()}
}

func (cs *CircleSampler) Params() SplitParams {
	return cs.params
}

// Split 将 src 分割为底图与若干圆形采样层。src 不会被修改。
// 底图以不可变值的方式逐层传递：每层返回新的底图，挖洞是累积的。
func (cs *CircleSampler) Split(src image.Image, rng *rand.Rand) *LayerSet {
	source := toOpaque(src)
	w, h := source.Bounds().Dx(), source.Bounds().Dy()
	r := Radius(w, h, cs.params.RadiusDivisor)

	base := source
	covered := NewMask(w, h)
	layers := make([]*image.NRGBA, 0, cs.params.Layers)

	for i := 0; i < cs.params.Layers; i++ {
		circles := SampleCircles(w, h, r, cs.params.CirclesPerLayer, rng)

		mask := NewMask(w, h)
		for _, c := range circles {
			mask.Disc(c.X, c.Y, r)
		}

		layers = append(layers, RevealLayer(source, mask))
		base = Punch(base, mask)
		covered.Union(mask)
	}

	return &LayerSet{
		Base:    base,
		Layers:  layers,
		Radius:  r,
		Covered: covered.Count(),
	}
}

// SampleCircles 在 [-r, w+r) × [-r, h+r) 内均匀采样 n 个圆心
func SampleCircles(width, height, r, n int, rng *rand.Rand) []Circle {
	circles := make([]Circle, n)
	for i := range circles {
		circles[i] = Circle{
			X: rng.Intn(width+2*r) - r,
			Y: rng.Intn(height+2*r) - r,
		}
	}
	return circles
}

// RevealLayer 生成白底图层，只在掩码覆盖处保留原图像素
func RevealLayer(source *image.NRGBA, mask *Mask) *image.NRGBA {
	layer := imaging.New(mask.Width, mask.Height, color.White)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) {
				continue
			}
			i := source.PixOffset(x, y)
			j := layer.PixOffset(x, y)
			copy(layer.Pix[j:j+4], source.Pix[i:i+4])
		}
	}
	return layer
}

// Punch 返回 img 的副本，掩码覆盖处涂白
func Punch(img *image.NRGBA, mask *Mask) *image.NRGBA {
	out := imaging.Clone(img)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) {
				continue
			}
			i := out.PixOffset(x, y)
			out.Pix[i+0] = 0xff
			out.Pix[i+1] = 0xff
			out.Pix[i+2] = 0xff
			out.Pix[i+3] = 0xff
		}
	}
	return out
}
