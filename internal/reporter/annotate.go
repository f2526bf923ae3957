package reporter

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sua-org/traffic-edge/internal/core"
)

// Paleta e nomes por label, no espaço combinado dos dois modelos
// (0 = placa; 1.. = classes do modelo de estacionamento).
var (
	labelColors = []color.RGBA{
		{255, 0, 255, 255}, // plate: magenta
		{0, 255, 0, 255},   // available: verde
		{0, 0, 255, 255},   // bus: azul
		{68, 68, 68, 255},  // negative: cinza
		{0, 255, 255, 255}, // occupied: ciano
		{255, 0, 0, 255},   // red-line
		{255, 255, 0, 255}, // yellow-line
	}
	labelNames = []string{
		"plate", "available", "bus", "negative", "occupied", "red-line", "yellow-line",
	}
)

const strokeWidth = 4

// Annotate desenha as bounding boxes e os rótulos sobre uma cópia da
// captura, para a superfície de exibição e para o arquivo de capturas.
func Annotate(img image.Image, objects []core.DetectedObject) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)

	for _, obj := range objects {
		col := labelColor(obj.Label)
		box := image.Rect(
			int(obj.X), int(obj.Y),
			int(obj.X+obj.W), int(obj.Y+obj.H),
		).Intersect(b)
		if box.Empty() {
			continue
		}

		strokeRect(out, box, col)

		text := fmt.Sprintf("%s = %.1f%%", labelName(obj.Label), obj.Score*100)
		drawLabel(out, box, text, col)
	}

	return out
}

func labelColor(label int) color.RGBA {
	if label < 0 || label >= len(labelColors) {
		return color.RGBA{255, 255, 255, 255}
	}
	return labelColors[label]
}

func labelName(label int) string {
	if label < 0 || label >= len(labelNames) {
		return "unknown"
	}
	return labelNames[label]
}

// strokeRect desenha só a borda da caixa.
func strokeRect(dst *image.RGBA, box image.Rectangle, col color.RGBA) {
	src := &image.Uniform{col}
	top := image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+strokeWidth)
	bottom := image.Rect(box.Min.X, box.Max.Y-strokeWidth, box.Max.X, box.Max.Y)
	left := image.Rect(box.Min.X, box.Min.Y, box.Min.X+strokeWidth, box.Max.Y)
	right := image.Rect(box.Max.X-strokeWidth, box.Min.Y, box.Max.X, box.Max.Y)

	for _, edge := range []image.Rectangle{top, bottom, left, right} {
		draw.Draw(dst, edge.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawLabel pinta o texto numa faixa preenchida logo acima da caixa
// (ou dentro, quando a caixa encosta no topo).
func drawLabel(dst *image.RGBA, box image.Rectangle, text string, col color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	x := box.Min.X
	y := box.Min.Y - height
	if y < dst.Bounds().Min.Y {
		y = box.Min.Y
	}
	if x+width > dst.Bounds().Max.X {
		x = dst.Bounds().Max.X - width
	}
	if x < dst.Bounds().Min.X {
		x = dst.Bounds().Min.X
	}

	bg := image.Rect(x, y, x+width, y+height).Intersect(dst.Bounds())
	draw.Draw(dst, bg, &image.Uniform{col}, image.Point{}, draw.Src)

	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(x),
			Y: fixed.I(y + face.Metrics().Ascent.Ceil()),
		},
	}
	drawer.DrawString(text)
}
