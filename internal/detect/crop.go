package detect

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/sua-org/traffic-edge/internal/core"
)

// cropBox recorta a bounding box do objeto da imagem original. A caixa é
// limitada às bordas da imagem; detectores às vezes devolvem caixas
// parcialmente fora do quadro.
func cropBox(img image.Image, obj core.DetectedObject) image.Image {
	box := image.Rect(
		int(obj.X), int(obj.Y),
		int(obj.X+obj.W), int(obj.Y+obj.H),
	).Intersect(img.Bounds())

	out := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	xdraw.Copy(out, image.Point{}, img, box, xdraw.Src, nil)
	return out
}

// normalizeAspect reescala o recorte para a proporção 26:14, mantendo a
// altura. Aritmética inteira: largura alvo = altura * 26 / 14.
func normalizeAspect(img image.Image) image.Image {
	b := img.Bounds()
	height := b.Dy()
	width := height * aspectWidth / aspectHeight
	if width <= 0 || height <= 0 {
		return img
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), img, b, xdraw.Src, nil)
	return out
}
