// Package reporter contém o orquestrador do relatório periódico: a cada
// tick publica o frame anterior, instala um frame novo e dispara a
// sequência captura -> detecção -> fila de OCR.
package reporter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"sync/atomic"
	"time"

	"github.com/sua-org/traffic-edge/internal/camera"
	"github.com/sua-org/traffic-edge/internal/core"
	"github.com/sua-org/traffic-edge/internal/detect"
	"github.com/sua-org/traffic-edge/internal/report"
	"github.com/sua-org/traffic-edge/internal/storage"
)

// Tópico dos relatórios periódicos.
const TopicPeriodicReport = "traffic/user-report"

// Intervalos default do tick: com o modelo de estacionamento ativo o
// ciclo é mais pesado, então o período é maior.
const (
	DefaultReportInterval     = 3000 * time.Millisecond
	DefaultReportIntervalLean = 1000 * time.Millisecond
)

// Publisher é o pedaço do client MQTT que o orquestrador usa.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// StatusSource expõe o status de conectabilidade mantido pelo supervisor.
type StatusSource interface {
	Status() core.Status
}

// GpsProvider entrega o último fix de GPS, se houver.
type GpsProvider interface {
	CurrentFix() (core.GpsFix, bool)
}

// Display é a superfície de exibição (anotação e telemetria). Opcional.
type Display interface {
	ShowCapture(img image.Image)
	ShowTelemetry(lat, lon float64, speedKmh float32)
	Clear()
}

type Config struct {
	DeviceID      string
	Publisher     Publisher
	Status        StatusSource
	Camera        camera.Camera
	Gps           GpsProvider
	Stage         *detect.Stage
	Display       Display                // opcional
	Archive       storage.CaptureArchive // opcional
	Interval      time.Duration
	DetectParking bool
}

type Reporter struct {
	deviceID      string
	publisher     Publisher
	status        StatusSource
	camera        camera.Camera
	gps           GpsProvider
	stage         *detect.Stage
	display       Display
	archive       storage.CaptureArchive
	interval      time.Duration
	detectParking bool

	enabled atomic.Bool

	// Handle do frame ativo. Só o orquestrador escreve; o worker de OCR
	// e o caminho de captura leem. Leitores que pegarem o frame antigo
	// durante a troca terminam o trabalho contra ele, que já foi
	// publicado e morre em seguida.
	active atomic.Pointer[report.Frame]
}

func New(cfg Config) *Reporter {
	interval := cfg.Interval
	if interval <= 0 {
		if cfg.DetectParking {
			interval = DefaultReportInterval
		} else {
			interval = DefaultReportIntervalLean
		}
	}

	r := &Reporter{
		deviceID:      cfg.DeviceID,
		publisher:     cfg.Publisher,
		status:        cfg.Status,
		camera:        cfg.Camera,
		gps:           cfg.Gps,
		stage:         cfg.Stage,
		display:       cfg.Display,
		archive:       cfg.Archive,
		interval:      interval,
		detectParking: cfg.DetectParking,
	}
	// Frame inicial: o primeiro tick publica ele (vazio) e instala o
	// próximo, igual a qualquer outro tick.
	r.active.Store(report.NewFrame())
	return r
}

// ActiveFrame retorna o frame sendo preenchido agora. É o handle que o
// worker de OCR consulta a cada iteração.
func (r *Reporter) ActiveFrame() *report.Frame {
	return r.active.Load()
}

func (r *Reporter) DetectionEnabled() bool {
	return r.enabled.Load()
}

// SetDetectionEnabled liga/desliga o pipeline. Vale a partir do próximo
// tick; o worker de OCR passa a ociar no próximo poll.
func (r *Reporter) SetDetectionEnabled(v bool) {
	r.enabled.Store(v)
	if v {
		log.Printf("[reporter] detection enabled")
		return
	}
	log.Printf("[reporter] detection disabled")
	if r.display != nil {
		r.display.Clear()
	}
}

// Run dispara o tick a cada intervalo até o contexto ser cancelado. Um
// tick que estourar o período não acumula atraso: existe no máximo um
// frame ativo por vez.
func (r *Reporter) Run(ctx context.Context) error {
	log.Printf("[reporter] started (interval=%s, parking=%t, device=%s)",
		r.interval, r.detectParking, r.deviceID)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[reporter] stopped (context canceled)")
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick é a sequência completa de um ciclo: publicar o frame anterior,
// instalar o novo, GPS, captura, detecção, display. Nenhum erro
// atravessa a fronteira do tick.
func (r *Reporter) tick(ctx context.Context) {
	if r.status.Status() != core.StatusOK || !r.enabled.Load() {
		return
	}

	// 1) publica o frame anterior (fire-and-forget)
	if prev := r.active.Load(); prev != nil {
		r.publishFrame(prev)
	}

	// 2) instala o frame novo; o timestamp é o segundo de criação
	frame := report.NewFrame()
	r.active.Store(frame)

	// 3) telemetria; sem fix o frame fica e sai vazio no próximo tick
	fix, ok := r.gps.CurrentFix()
	if !ok {
		log.Printf("[reporter] no gps fix, skipping detection this tick")
		return
	}
	frame.ApplyFix(fix)

	// 4) captura; falha deixa o frame sem detecções, publicação segue
	img, err := r.camera.Capture(ctx)
	if err != nil {
		log.Printf("[reporter] image capture failed: %v", err)
		return
	}

	// 5) detecção + fila de OCR
	objects := r.stage.DetectAndEnqueue(ctx, frame, img, r.detectParking)

	// 6) display e arquivo da captura anotada
	annotated := Annotate(img, objects)
	if r.display != nil {
		r.display.ShowCapture(annotated)
		r.display.ShowTelemetry(fix.Latitude, fix.Longitude, fix.SpeedMs*3.6)
	}
	if r.archive != nil {
		go r.archiveCapture(annotated, frame.ReportTimestamp)
	}
}

func (r *Reporter) publishFrame(frame *report.Frame) {
	payload, err := frame.WireJSON(r.deviceID)
	if err != nil {
		log.Printf("[reporter] marshal report failed: %v", err)
		return
	}
	if err := r.publisher.Publish(TopicPeriodicReport, 0, false, payload); err != nil {
		log.Printf("[reporter] publish to %s failed: %v", TopicPeriodicReport, err)
	}
}

func (r *Reporter) archiveCapture(img image.Image, ts int32) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		log.Printf("[reporter] encode capture failed: %v", err)
		return
	}

	key := fmt.Sprintf("captures/%s/%d.jpg", r.deviceID, ts)
	url, err := r.archive.SaveCapture(ctx, key, buf.Bytes(), "image/jpeg")
	if err != nil {
		log.Printf("[reporter] archive capture failed: %v", err)
		return
	}
	log.Printf("[reporter] capture archived: %s", url)
}
