package gif

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/gorgonia/dbn/internal/num"
	"github.com/gorgonia/dbn/layer"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
	"gorgonia.org/tensor"
)

var regular *truetype.Font

const (
	dpi        = 72.0
	fontsize   = 10.0
	lineheight = 1.2
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var globPalette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{uint8(i)}
	}
	return p
}()

// Weighted is a layer with a weight tensor.
type Weighted interface {
	layer.Layer
	W() *tensor.Dense
}

// Tiles is a set of equally sized grey scale images.
type Tiles struct {
	H, W int
	Data [][]float64
}

// Filters cuts the weights of l into tiles. The weights of a dense layer give one tile per
// hidden unit, of height h and width w (h*w must be the number of visible units; with
// h = 0 the tile is as square as possible). Convolutional weights give one tile per filter
// and channel.
func Filters(l Weighted, h, w int) (Tiles, error) {
	wt := l.W()
	if wt == nil {
		return Tiles{}, errors.Wrap(layer.ErrUninitialized, "no weights")
	}
	s := wt.Shape()
	switch len(s) {
	case 2:
		nv, nh := s[0], s[1]
		if h == 0 {
			h, w = square(nv)
		}
		if h*w != nv {
			return Tiles{}, errors.Errorf("%dx%d tiles cannot show %d visible units", h, w, nv)
		}
		retVal := Tiles{H: h, W: w, Data: make([][]float64, nh)}
		for j := range retVal.Data {
			tile := make([]float64, nv)
			for i := range tile {
				tile[i] = num.At(wt, i*nh+j)
			}
			retVal.Data[j] = tile
		}
		return retVal, nil
	case 4:
		count, size := s[0]*s[1], s[2]*s[3]
		retVal := Tiles{H: s[2], W: s[3], Data: make([][]float64, count)}
		for k := range retVal.Data {
			tile := make([]float64, size)
			for i := range tile {
				tile[i] = num.At(wt, k*size+i)
			}
			retVal.Data[k] = tile
		}
		return retVal, nil
	}
	return Tiles{}, errors.Errorf("cannot render weights of shape %v", s)
}

// square returns the factorisation of n closest to a square.
func square(n int) (h, w int) {
	h = int(math.Sqrt(float64(n)))
	for h > 1 && n%h != 0 {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h, n / h
}

// Encoder renders tiles into the frames of an animated GIF, one frame per call to Encode.
type Encoder struct {
	Scale int // pixels per weight
	Delay int // delay of every frame, in 100ths of a second
	font.Drawer

	out *gif.GIF
	io.Writer
	face font.Face

	pad int
}

// NewGifEncoder creates an encoder writing into w.
func NewGifEncoder(w io.Writer, scale int) *Encoder {
	if scale < 1 {
		scale = 1
	}
	return &Encoder{
		Scale:  scale,
		Delay:  50,
		Writer: w,
		pad:    4,
		Drawer: font.Drawer{
			Src: image.Black,
		},
		out: &gif.GIF{LoopCount: 0},
	}
}

// Encode appends a frame showing the tiles in a grid with a caption below it. Every tile
// is normalised to its own range.
func (enc *Encoder) Encode(t Tiles, caption string) error {
	if len(t.Data) == 0 || t.H <= 0 || t.W <= 0 {
		return errors.New("nothing to render")
	}
	if enc.face == nil {
		enc.face = truetype.NewFace(regular, &truetype.Options{
			Size:    fontsize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		})
		enc.Drawer.Face = enc.face
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(t.Data)))))
	rows := (len(t.Data) + cols - 1) / cols
	th, tw := t.H*enc.Scale, t.W*enc.Scale
	dy := int(math.Ceil(fontsize * lineheight * dpi / 72))

	w := cols*(tw+enc.pad) + enc.pad
	if cw := font.MeasureString(enc.face, caption).Ceil() + 2*enc.pad; cw > w {
		w = cw
	}
	h := rows*(th+enc.pad) + enc.pad + dy + enc.pad

	im := image.NewPaletted(image.Rect(0, 0, w, h), globPalette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)
	for k, tile := range t.Data {
		x0 := enc.pad + (k%cols)*(tw+enc.pad)
		y0 := enc.pad + (k/cols)*(th+enc.pad)
		lo, hi := bounds(tile)
		for i, v := range tile {
			g := uint8(127)
			if hi > lo {
				g = uint8(255 * (v - lo) / (hi - lo))
			}
			r := image.Rect(0, 0, enc.Scale, enc.Scale).Add(image.Pt(x0+(i%t.W)*enc.Scale, y0+(i/t.W)*enc.Scale))
			draw.Draw(im, r, image.NewUniform(color.Gray{g}), image.Point{}, draw.Src)
		}
	}

	enc.Dst = im
	enc.Dot = fixed.P(enc.pad, h-enc.pad)
	enc.DrawString(caption)

	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, enc.Delay)
	return nil
}

func bounds(a []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range a {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return
}

// Frames is the number of frames encoded so far.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }

// Flush writes the gif into the writer
func (enc *Encoder) Flush() error { return gif.EncodeAll(enc.Writer, enc.out) }
