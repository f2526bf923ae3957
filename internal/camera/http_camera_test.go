package camera

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
)

func snapshotServer(t *testing.T, width, height int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height)), nil); err != nil {
			t.Errorf("encode snapshot: %v", err)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(buf.Bytes())
	}))
}

func TestCaptureSquareCropsLandscape(t *testing.T) {
	srv := snapshotServer(t, 640, 480)
	defer srv.Close()

	cam := NewHTTPCamera(srv.URL, "", "")
	img, err := cam.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != 480 || b.Dy() != 480 {
		t.Errorf("capture = %dx%d, want 480x480", b.Dx(), b.Dy())
	}
}

func TestCaptureErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cam := NewHTTPCamera(srv.URL, "", "")
	if _, err := cam.Capture(context.Background()); err == nil {
		t.Fatal("Capture succeeded against a failing endpoint")
	}
}

func TestSquareCropAlreadySquare(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	if got := squareCrop(src); got != src {
		t.Error("square input should pass through unchanged")
	}
}
