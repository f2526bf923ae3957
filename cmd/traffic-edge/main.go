// cmd/traffic-edge/main.go
package main

import (
	"context"
	"image"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sua-org/traffic-edge/internal/alerts"
	"github.com/sua-org/traffic-edge/internal/camera"
	"github.com/sua-org/traffic-edge/internal/core"
	"github.com/sua-org/traffic-edge/internal/detect"
	"github.com/sua-org/traffic-edge/internal/gpsd"
	"github.com/sua-org/traffic-edge/internal/mqttclient"
	"github.com/sua-org/traffic-edge/internal/ocr"
	"github.com/sua-org/traffic-edge/internal/reporter"
	"github.com/sua-org/traffic-edge/internal/storage"
	"github.com/sua-org/traffic-edge/internal/supervisor"
)

// Tópico dos alertas de trânsito empurrados para o dispositivo.
const topicAlerts = "traffic/alerts"

func main() {
	// Carrega .env na raiz (se não existir, só loga aviso)
	if err := godotenv.Load(); err != nil {
		log.Printf("[main] aviso: não foi possível carregar .env: %v", err)
	} else {
		log.Printf("[main] .env carregado com sucesso")
	}

	deviceID := resolveDeviceID()
	log.Printf("[main] device id: %s", deviceID)

	// Inicializa MinIO (opcional; se falhar, continua sem arquivo remoto)
	var archive storage.CaptureArchive
	if a, err := storage.NewMinioArchiveFromEnv(); err != nil {
		log.Printf("[main] aviso: MinIO não inicializado: %v", err)
	} else {
		archive = a
	}

	mqttCli, err := mqttclient.NewClientFromEnv("traffic-edge-" + deviceID)
	if err != nil {
		log.Fatalf("erro ao conectar no MQTT: %v", err)
	}
	defer mqttCli.Close()

	cam, err := camera.NewHTTPCameraFromEnv()
	if err != nil {
		log.Fatalf("erro ao configurar câmera: %v", err)
	}
	detector, err := detect.NewHTTPDetectorFromEnv()
	if err != nil {
		log.Fatalf("erro ao configurar detector: %v", err)
	}
	recognizer, err := ocr.NewHTTPRecognizerFromEnv()
	if err != nil {
		log.Fatalf("erro ao configurar OCR: %v", err)
	}

	gps := gpsd.NewFromEnv()

	detectParking := parkingModelFits()
	log.Printf("[main] parking model enabled: %t", detectParking)

	display := &logDisplay{}

	sup := supervisor.New(supervisor.Config{
		DeviceID:      deviceID,
		Broker:        mqttCli,
		GpsAvailable:  gps.Available,
		CheckInterval: envMillis("HEALTH_INTERVAL_MS", 0),
		OnStatus: func(st core.Status) {
			if st != core.StatusOK {
				log.Printf("[main] reporting paused: %s", st)
			} else {
				log.Printf("[main] reporting resumed")
			}
		},
	})

	rep := reporter.New(reporter.Config{
		DeviceID:      deviceID,
		Publisher:     mqttCli,
		Status:        sup,
		Camera:        cam,
		Gps:           gps,
		Stage:         detect.NewStage(detector),
		Display:       display,
		Archive:       archive,
		Interval:      envMillis("REPORT_INTERVAL_MS", 0),
		DetectParking: detectParking,
	})

	worker := ocr.NewWorker(recognizer, os.Getenv("PLATE_REGION"), rep.ActiveFrame, rep.DetectionEnabled)

	inbox := alerts.NewInbox()
	inbox.SetChangeHook(func(list []core.TrafficAlert) {
		for i, a := range list {
			log.Printf("[alerts] %d) %s: %s", i+1, a.Title, a.Description)
		}
	})
	if err := mqttCli.Subscribe(topicAlerts, 1, func(_ string, payload []byte) {
		inbox.OnPush(payload)
	}); err != nil {
		log.Printf("[main] aviso: subscribe em %s falhou: %v", topicAlerts, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := gps.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[main] gpsd client terminou com erro: %v", err)
		}
	}()
	go func() {
		if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[main] supervisor terminou com erro: %v", err)
		}
	}()
	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[main] ocr worker terminou com erro: %v", err)
		}
	}()
	go func() {
		if err := rep.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[main] reporter terminou com erro: %v", err)
		}
	}()

	rep.SetDetectionEnabled(true)

	<-sig
	log.Println("[main] sinal recebido, encerrando...")
	cancel()
	time.Sleep(1 * time.Second)
}

// envMillis lê um intervalo em milissegundos; ausência ou valor
// inválido devolve o default (0 = deixa o componente decidir).
func envMillis(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		log.Printf("[main] aviso: valor inválido em %s=%q, usando default", key, v)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// resolveDeviceID lê DEVICE_ID; sem ele, usa o hostname.
func resolveDeviceID() string {
	if v := strings.TrimSpace(os.Getenv("DEVICE_ID")); v != "" {
		return v
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "traffic-edge"
	}
	return host
}

// parkingModelFits decide se o modelo de estacionamento roda: só com
// memória disponível acima do piso (default 1500 MB).
func parkingModelFits() bool {
	minMB := 1500
	if v := strings.TrimSpace(os.Getenv("PARKING_MIN_AVAIL_MEMORY_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minMB = n
		}
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("[main] aviso: leitura de memória falhou, modelo de estacionamento desligado: %v", err)
		return false
	}

	availMB := vm.Available / (1024 * 1024)
	log.Printf("[main] available memory: %d MB (piso para estacionamento: %d MB)", availMB, minMB)
	return availMB > uint64(minMB)
}

// logDisplay é a superfície de exibição headless: só loga a telemetria.
type logDisplay struct{}

func (logDisplay) ShowCapture(img image.Image) {}

func (logDisplay) ShowTelemetry(lat, lon float64, speedKmh float32) {
	log.Printf("[display] lat=%.5f lon=%.5f speed=%.1f km/h", lat, lon, speedKmh)
}

func (logDisplay) Clear() {
	log.Printf("[display] cleared")
}
