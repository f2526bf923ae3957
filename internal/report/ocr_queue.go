package report

import (
	"image"
	"time"
)

// Capacidade máxima da fila de OCR por frame. Itens acima disso são
// descartados na entrada (shedding) para não segurar a thread de captura.
const MaxOcrQueueCapacity = 5

// OcrItem é um recorte de placa aguardando reconhecimento de texto.
type OcrItem struct {
	Image         image.Image
	OcrResult     string
	SubmittedAtMs int64
	CompletedAtMs int64
	Processed     bool
}

// ElapsedMs retorna quanto tempo o item levou da entrada na fila até o
// fim do reconhecimento.
func (it *OcrItem) ElapsedMs() int64 {
	return it.CompletedAtMs - it.SubmittedAtMs
}

// OcrQueue é uma fila limitada multi-produtor/consumidor-único de itens
// de OCR. O worker bloqueia no Poll em vez de fazer busy-wait.
type OcrQueue struct {
	items chan *OcrItem
}

func NewOcrQueue() *OcrQueue {
	return &OcrQueue{items: make(chan *OcrItem, MaxOcrQueueCapacity)}
}

// Offer tenta enfileirar o item. Retorna false quando a fila está cheia;
// nesse caso o item é descartado pelo chamador.
func (q *OcrQueue) Offer(img image.Image) bool {
	item := &OcrItem{
		Image:         img,
		SubmittedAtMs: time.Now().UnixMilli(),
	}
	select {
	case q.items <- item:
		return true
	default:
		return false
	}
}

// Poll espera até d por um item. Retorna (nil, false) no timeout.
func (q *OcrQueue) Poll(d time.Duration) (*OcrItem, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case item := <-q.items:
		return item, true
	case <-timer.C:
		return nil, false
	}
}

func (q *OcrQueue) Len() int {
	return len(q.items)
}
