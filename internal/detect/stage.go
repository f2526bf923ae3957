// Package detect roda os detectores neurais sobre um frame capturado e
// alimenta a fila de OCR do frame de relatório ativo.
package detect

import (
	"context"
	"image"
	"log"

	"github.com/sua-org/traffic-edge/internal/core"
	"github.com/sua-org/traffic-edge/internal/report"
)

// Largura mínima (px) de um recorte de placa para valer a pena o OCR.
const MinValidPlateWidth = 150

// Proporção alvo do recorte normalizado (largura:altura = 26:14).
const (
	aspectWidth  = 26
	aspectHeight = 14
)

// Detector é o contrato dos modelos de detecção, consumidos como caixa
// preta. Roda sempre o modelo de placas; o de estacionamento só quando
// detectParking é true.
type Detector interface {
	Detect(ctx context.Context, img image.Image, detectParking bool) ([]core.DetectedObject, error)
}

// Stage liga o detector à fila de OCR do frame ativo.
type Stage struct {
	detector Detector
}

func NewStage(d Detector) *Stage {
	return &Stage{detector: d}
}

// DetectAndEnqueue roda os detectores sobre a imagem e, para cada placa
// com recorte válido, enfileira um item de OCR no frame. Hits do modelo
// de estacionamento marcam a flag de vaga livre. Retorna as bounding
// boxes para anotação na tela.
//
// Falha do detector vale como zero detecções; a fila cheia descarta o
// recém-chegado em vez de bloquear o caminho de captura.
func (s *Stage) DetectAndEnqueue(ctx context.Context, frame *report.Frame, img image.Image, detectParking bool) []core.DetectedObject {
	objects, err := s.detector.Detect(ctx, img, detectParking)
	if err != nil {
		log.Printf("[detect] detector failed: %v", err)
		return nil
	}

	for _, obj := range objects {
		switch obj.ModelIndex {
		case core.ModelPlate:
			s.enqueuePlate(frame, img, obj)
		case core.ModelParking:
			if obj.Label == core.LabelParkingAvailable {
				frame.MarkParkingAvailable()
			}
		}
	}

	return objects
}

func (s *Stage) enqueuePlate(frame *report.Frame, img image.Image, obj core.DetectedObject) {
	cropped := cropBox(img, obj)
	if !isValidPlateCrop(cropped) {
		return
	}

	normalized := normalizeAspect(cropped)
	if !frame.OcrQueue.Offer(normalized) {
		log.Printf("[detect] ocr queue full, dropping plate crop (%dx%d)",
			cropped.Bounds().Dx(), cropped.Bounds().Dy())
	}
}

// Recorte válido: mais largo que alto e largo o bastante para o OCR ler.
// Recortes quadrados são rejeitados; placa de verdade é sempre mais larga.
func isValidPlateCrop(img image.Image) bool {
	b := img.Bounds()
	if b.Dx() <= b.Dy() {
		return false
	}
	if b.Dx() < MinValidPlateWidth {
		return false
	}
	return true
}
