// Package ocr contém o worker que drena a fila de OCR do frame ativo e
// o cliente do serviço de reconhecimento de texto.
package ocr

import (
	"context"
	"image"
	"log"
	"time"

	"github.com/sua-org/traffic-edge/internal/plate"
	"github.com/sua-org/traffic-edge/internal/report"
)

// Recognizer é o contrato do motor de OCR, consumido como caixa preta.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

const (
	// Quanto tempo o Poll bloqueia esperando item antes de rechecar o
	// frame ativo e o flag de detecção.
	defaultPollTimeout = 50 * time.Millisecond

	// Pausa quando a detecção está desligada ou não há frame ativo.
	defaultIdleDelay = 5 * time.Millisecond
)

// Worker é o consumidor único da fila de OCR. Vive pelo processo todo:
// pega o frame ativo, drena um item, reconhece, pós-processa e anexa a
// placa aceita àquele mesmo frame.
//
// O handle de frame é capturado uma vez por item; se o orquestrador
// trocar de frame no meio do reconhecimento, o resultado ainda vai para
// o frame antigo, que já foi publicado e será descartado em seguida.
type Worker struct {
	recognizer Recognizer
	region     string

	// Hooks para o estado do orquestrador (frame ativo, detecção on/off).
	activeFrame      func() *report.Frame
	detectionEnabled func() bool

	pollTimeout time.Duration
	idleDelay   time.Duration
}

func NewWorker(rec Recognizer, region string, activeFrame func() *report.Frame, detectionEnabled func() bool) *Worker {
	if region == "" {
		region = plate.RegionTaiwan
	}
	return &Worker{
		recognizer:       rec,
		region:           region,
		activeFrame:      activeFrame,
		detectionEnabled: detectionEnabled,
		pollTimeout:      defaultPollTimeout,
		idleDelay:        defaultIdleDelay,
	}
}

// Run roda o loop do worker até o contexto ser cancelado.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[ocr] worker started (region=%s)", w.region)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[ocr] worker stopped (context canceled)")
			return ctx.Err()
		default:
		}

		frame := w.activeFrame()
		if frame == nil || !w.detectionEnabled() {
			time.Sleep(w.idleDelay)
			continue
		}

		item, ok := frame.OcrQueue.Poll(w.pollTimeout)
		if !ok {
			continue
		}

		w.processItem(ctx, frame, item)
	}
}

// processItem reconhece um item e, se o pós-processamento aceitar o
// texto, anexa a placa ao frame de onde o item saiu.
func (w *Worker) processItem(ctx context.Context, frame *report.Frame, item *report.OcrItem) {
	text, err := w.recognizer.Recognize(ctx, item.Image)
	if err != nil {
		log.Printf("[ocr] recognize failed: %v", err)
		return
	}

	normalized := plate.Normalize(text, w.region)
	if normalized == "" {
		// rejeitado pelo pós-processador
		return
	}

	item.OcrResult = normalized
	item.CompletedAtMs = time.Now().UnixMilli()
	item.Processed = true

	frame.AppendPlate(normalized)
	log.Printf("[ocr] plate %s (%d ms)", normalized, item.ElapsedMs())
}
