// Package report contém o frame agregador por ciclo e o formato de fio
// dos relatórios periódicos.
package report

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/sua-org/traffic-edge/internal/core"
)

// Frame é o registro mutável de um ciclo de relatório. O orquestrador é
// o único dono do handle ativo; o worker de OCR compartilha apenas a
// fila e a lista de placas, ambas protegidas aqui dentro.
type Frame struct {
	ReportTimestamp int32 // segundo de parede em que o frame foi criado

	Latitude  float32
	Longitude float32
	SpeedMs   float32
	Heading   float32

	OcrQueue *OcrQueue

	mu               sync.Mutex
	plates           []string
	parkingAvailable bool
}

func NewFrame() *Frame {
	return &Frame{
		ReportTimestamp: int32(time.Now().UnixMilli() / 1000),
		Latitude:        -1.0,
		Longitude:       -1.0,
		OcrQueue:        NewOcrQueue(),
	}
}

// ApplyFix copia os quatro campos de telemetria do fix para o frame.
func (f *Frame) ApplyFix(fix core.GpsFix) {
	f.Latitude = float32(fix.Latitude)
	f.Longitude = float32(fix.Longitude)
	f.SpeedMs = fix.SpeedMs
	f.Heading = fix.Heading
}

// AppendPlate registra uma placa já normalizada. Placas vazias nunca
// chegam aqui; o pós-processador rejeita antes.
func (f *Frame) AppendPlate(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plates = append(f.plates, p)
}

// Plates retorna uma cópia estável da lista de placas, na ordem em que o
// worker de OCR as completou.
func (f *Frame) Plates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.plates))
	copy(out, f.plates)
	return out
}

func (f *Frame) MarkParkingAvailable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parkingAvailable = true
}

func (f *Frame) ParkingAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parkingAvailable
}

// WirePayload é o objeto JSON publicado em traffic/user-report.
type WirePayload struct {
	ReportTime       int32   `json:"report_time"`
	ReporterUID      string  `json:"reporter_uid"`
	Latitude         float32 `json:"latitude"`
	Longitude        float32 `json:"longitude"`
	SpeedMs          float32 `json:"speed_ms"`
	Heading          float32 `json:"heading"`
	Plates           string  `json:"plates"`
	ParkingAvailable bool    `json:"parking_available"`
}

// Payload congela o frame no formato de fio. As placas viram uma única
// string separada por vírgula (lista vazia vira "").
func (f *Frame) Payload(deviceID string) WirePayload {
	return WirePayload{
		ReportTime:       f.ReportTimestamp,
		ReporterUID:      deviceID,
		Latitude:         f.Latitude,
		Longitude:        f.Longitude,
		SpeedMs:          f.SpeedMs,
		Heading:          f.Heading,
		Plates:           strings.Join(f.Plates(), ","),
		ParkingAvailable: f.ParkingAvailable(),
	}
}

// WireJSON serializa o frame para publicação.
func (f *Frame) WireJSON(deviceID string) ([]byte, error) {
	return json.Marshal(f.Payload(deviceID))
}
