package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sua-org/traffic-edge/internal/core"
)

// HTTPDetector fala com um serviço externo de detecção (os dois modelos
// YOLO rodam lá). A imagem vai como multipart e a resposta é uma lista
// de bounding boxes em JSON.
type HTTPDetector struct {
	BaseURL string
	HTTP    *http.Client
}

type detectResponse struct {
	Objects []struct {
		X          float32 `json:"x"`
		Y          float32 `json:"y"`
		W          float32 `json:"w"`
		H          float32 `json:"h"`
		Label      int     `json:"label"`
		Score      float32 `json:"score"`
		ModelIndex int     `json:"model_index"`
	} `json:"objects"`
}

func NewHTTPDetector(baseURL string) *HTTPDetector {
	return &HTTPDetector{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewHTTPDetectorFromEnv lê DETECTOR_BASE_URL (ex: http://127.0.0.1:8061).
func NewHTTPDetectorFromEnv() (*HTTPDetector, error) {
	baseURL := strings.TrimSpace(os.Getenv("DETECTOR_BASE_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("DETECTOR_BASE_URL não definido")
	}
	return NewHTTPDetector(baseURL), nil
}

func (d *HTTPDetector) Detect(ctx context.Context, img image.Image, detectParking bool) ([]core.DetectedObject, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("frame", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, nil); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := writer.WriteField("detect_parking", fmt.Sprintf("%t", detectParking)); err != nil {
		return nil, fmt.Errorf("write field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	url := d.BaseURL + "/v1/detect"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("detector returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}

	objects := make([]core.DetectedObject, 0, len(decoded.Objects))
	for _, o := range decoded.Objects {
		objects = append(objects, core.DetectedObject{
			X: o.X, Y: o.Y, W: o.W, H: o.H,
			Label:      o.Label,
			Score:      o.Score,
			ModelIndex: o.ModelIndex,
		})
	}
	return objects, nil
}
