// Package camera define o contrato do motor de captura e uma
// implementação que busca snapshots JPEG por HTTP.
package camera

import (
	"context"
	"image"
)

// Camera produz, sob demanda, uma imagem RGB retificada e com recorte
// quadrado, pronta para os detectores.
type Camera interface {
	Capture(ctx context.Context) (image.Image, error)
}
