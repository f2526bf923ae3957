package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // formatos aceitos do endpoint de snapshot
	_ "image/png"
	"net/http"
	"os"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
)

// HTTPCamera busca um snapshot num endpoint HTTP (câmera IP, mediamtx,
// etc.) e recorta o centro num quadrado, que é o formato que os modelos
// esperam.
type HTTPCamera struct {
	SnapshotURL string
	Username    string
	Password    string
	HTTP        *http.Client
}

func NewHTTPCamera(snapshotURL, username, password string) *HTTPCamera {
	return &HTTPCamera{
		SnapshotURL: snapshotURL,
		Username:    username,
		Password:    password,
		HTTP: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NewHTTPCameraFromEnv lê:
//
//	CAMERA_SNAPSHOT_URL (ex: http://10.0.0.10/snapshot.jpg)
//	CAMERA_USERNAME, CAMERA_PASSWORD (opcionais, basic auth)
func NewHTTPCameraFromEnv() (*HTTPCamera, error) {
	url := strings.TrimSpace(os.Getenv("CAMERA_SNAPSHOT_URL"))
	if url == "" {
		return nil, fmt.Errorf("CAMERA_SNAPSHOT_URL não definido")
	}
	return NewHTTPCamera(url, os.Getenv("CAMERA_USERNAME"), os.Getenv("CAMERA_PASSWORD")), nil
}

func (c *HTTPCamera) Capture(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SnapshotURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot endpoint returned %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return squareCrop(img), nil
}

// squareCrop recorta o centro da imagem no maior quadrado possível.
func squareCrop(img image.Image) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if b.Dx() == b.Dy() {
		return img
	}

	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	box := image.Rect(x0, y0, x0+side, y0+side)

	out := image.NewRGBA(image.Rect(0, 0, side, side))
	xdraw.Copy(out, image.Point{}, img, box, xdraw.Src, nil)
	return out
}
