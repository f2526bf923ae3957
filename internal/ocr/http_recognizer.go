package ocr

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
)

// HTTPRecognizer fala com um serviço externo de OCR. O recorte vai como
// multipart e a resposta traz o texto cru reconhecido.
type HTTPRecognizer struct {
	BaseURL string
	HTTP    *http.Client
}

type recognizeResponse struct {
	Text string `json:"text"`
}

func NewHTTPRecognizer(baseURL string) *HTTPRecognizer {
	return &HTTPRecognizer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewHTTPRecognizerFromEnv lê OCR_BASE_URL (ex: http://127.0.0.1:8062).
func NewHTTPRecognizerFromEnv() (*HTTPRecognizer, error) {
	baseURL := strings.TrimSpace(os.Getenv("OCR_BASE_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("OCR_BASE_URL não definido")
	}
	return NewHTTPRecognizer(baseURL), nil
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("crop", "crop.jpg")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, nil); err != nil {
		return "", fmt.Errorf("encode crop: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	url := r.BaseURL + "/v1/recognize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ocr returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	return decoded.Text, nil
}
