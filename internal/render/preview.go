package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/marsweather/internal/transform"
)

// Preview card dimensions, matching Open Graph.
const (
	PreviewWidth  = 1200
	PreviewHeight = 630
)

var (
	previewBg   = color.RGBA{0x11, 0x11, 0x11, 0xff}
	previewText = color.RGBA{0xf2, 0xf5, 0xfa, 0xff}
	previewMax  = color.RGBA{0xff, 0x45, 0x00, 0xff} // orangered
	previewMin  = color.RGBA{0x87, 0xce, 0xeb, 0xff} // skyblue
)

// GeneratePreview draws a PNG card with min/max temperature sparklines.
func GeneratePreview(v *transform.Views) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, PreviewWidth, PreviewHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(previewBg), image.Point{}, draw.Src)

	drawText(dst, "Mars weather: daily temperature range", 40, 60)
	if n := len(v.Temperature); n > 0 {
		first, last := v.Temperature[0], v.Temperature[n-1]
		drawText(dst, fmt.Sprintf("sol %d to %d, %d sols", first.Sol, last.Sol, n), 40, 90)
	} else {
		drawText(dst, "no temperature data", 40, 90)
	}

	plot := image.Rect(40, 130, PreviewWidth-40, PreviewHeight-40)
	lo, hi, ok := tempBounds(v.Temperature)
	if !ok {
		return encodePNG(dst)
	}
	if hi == lo {
		hi = lo + 1
	}

	n := len(v.Temperature)
	xAt := func(i int) int {
		if n == 1 {
			return plot.Min.X
		}
		return plot.Min.X + i*(plot.Dx()-1)/(n-1)
	}
	yAt := func(t float64) int {
		return plot.Max.Y - 1 - int((t-lo)/(hi-lo)*float64(plot.Dy()-1))
	}

	prevMin, prevMax := image.Pt(-1, -1), image.Pt(-1, -1)
	for i, p := range v.Temperature {
		x := xAt(i)
		if p.Min.Valid {
			pt := image.Pt(x, yAt(p.Min.Float64))
			drawLine(dst, prevMin, pt, previewMin)
			prevMin = pt
		} else {
			prevMin = image.Pt(-1, -1)
		}
		if p.Max.Valid {
			pt := image.Pt(x, yAt(p.Max.Float64))
			drawLine(dst, prevMax, pt, previewMax)
			prevMax = pt
		} else {
			prevMax = image.Pt(-1, -1)
		}
	}

	return encodePNG(dst)
}

// WritePreview writes the preview card to path.
func WritePreview(v *transform.Views, path string) error {
	data, err := GeneratePreview(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func tempBounds(points []transform.TempPoint) (lo, hi float64, ok bool) {
	for _, p := range points {
		for _, t := range []struct {
			valid bool
			v     float64
		}{{p.Min.Valid, p.Min.Float64}, {p.Max.Valid, p.Max.Float64}} {
			if !t.valid {
				continue
			}
			if !ok {
				lo, hi, ok = t.v, t.v, true
				continue
			}
			lo, hi = min(lo, t.v), max(hi, t.v)
		}
	}
	return lo, hi, ok
}

func drawText(dst draw.Image, s string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(previewText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawLine joins from and to with a simple DDA line. A negative from starts
// a new segment.
func drawLine(dst *image.RGBA, from, to image.Point, c color.RGBA) {
	if from.X < 0 {
		dst.SetRGBA(to.X, to.Y, c)
		return
	}
	dx, dy := to.X-from.X, to.Y-from.Y
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		dst.SetRGBA(to.X, to.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		x := from.X + dx*i/steps
		y := from.Y + dy*i/steps
		dst.SetRGBA(x, y, c)
		dst.SetRGBA(x, y+1, c)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
