// internal/supervisor/supervisor.go
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sua-org/traffic-edge/internal/core"
)

// Broker é o pedaço do client MQTT que o supervisor observa e controla.
type Broker interface {
	IsConnected() bool
	Disconnect()
	Reconnect() error
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Predicate responde uma condição de saúde (permissões, GPS).
type Predicate func() bool

// Supervisor avalia continuamente a conectabilidade do dispositivo e
// mantém o status que o orquestrador consulta a cada tick. A ordem de
// avaliação é fixa: permissões, GPS, broker; vale o primeiro que falhar.
type Supervisor struct {
	deviceID string
	broker   Broker

	permissionsOK Predicate
	gpsAvailable  Predicate

	checkInterval  time.Duration
	statusInterval time.Duration

	onStatus func(core.Status)

	mu     sync.Mutex
	status core.Status
	proc   *process.Process // processo do traffic-edge para métricas
}

type Config struct {
	DeviceID      string
	Broker        Broker
	PermissionsOK Predicate // nil => sempre ok
	GpsAvailable  Predicate // nil => sempre ok
	CheckInterval time.Duration
	OnStatus      func(core.Status) // chamado a cada transição de status
}

func New(cfg Config) *Supervisor {
	check := cfg.CheckInterval
	if check <= 0 {
		check = time.Second
	}
	statusInterval := envDurationSeconds("EDGE_STATUS_INTERVAL_SECONDS", 30*time.Second)

	var procHandle *process.Process
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		procHandle = p
	}

	return &Supervisor{
		deviceID:       cfg.DeviceID,
		broker:         cfg.Broker,
		permissionsOK:  cfg.PermissionsOK,
		gpsAvailable:   cfg.GpsAvailable,
		checkInterval:  check,
		statusInterval: statusInterval,
		onStatus:       cfg.OnStatus,
		status:         core.StatusOK,
		proc:           procHandle,
	}
}

func envDurationSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		log.Printf("[supervisor] valor inválido em %s=%q, usando default %s", key, v, def)
		return def
	}
	return time.Duration(sec) * time.Second
}

// Status retorna o último status avaliado.
func (s *Supervisor) Status() core.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// evaluate decide o status atual: primeira condição que falhar, na
// ordem permissões -> GPS -> broker.
func (s *Supervisor) evaluate() core.Status {
	if s.permissionsOK != nil && !s.permissionsOK() {
		return core.StatusPermissionsMissing
	}
	if s.gpsAvailable != nil && !s.gpsAvailable() {
		return core.StatusGpsUnavailable
	}
	if !s.broker.IsConnected() {
		return core.StatusBrokerDisconnected
	}
	return core.StatusOK
}

// Run reavalia o status em loop até o contexto ser cancelado, e mantém
// em paralelo o loop de publicação do status do edge.
func (s *Supervisor) Run(ctx context.Context) error {
	log.Printf("[supervisor] started (check=%s, status publish=%s)", s.checkInterval, s.statusInterval)

	if s.statusInterval > 0 {
		go s.runStatusLoop(ctx)
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[supervisor] stopped (context canceled)")
			return ctx.Err()
		case <-ticker.C:
			s.check()
		}
	}
}

func (s *Supervisor) check() {
	next := s.evaluate()

	s.mu.Lock()
	prev := s.status
	s.status = next
	s.mu.Unlock()

	if next == prev {
		return
	}

	log.Printf("[supervisor] status %s -> %s", prev, next)

	// Na transição para broker desconectado, derruba qualquer sessão
	// semiaberta e tenta reconectar uma vez; o resultado aparece na
	// próxima avaliação.
	if next == core.StatusBrokerDisconnected {
		go func() {
			s.broker.Disconnect()
			if err := s.broker.Reconnect(); err != nil {
				log.Printf("[supervisor] broker reconnect failed: %v", err)
			}
		}()
	}

	if s.onStatus != nil {
		s.onStatus(next)
	}
}

func (s *Supervisor) runStatusLoop(ctx context.Context) {
	hostname, _ := os.Hostname()
	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()

	log.Printf("[supervisor] status loop iniciado (intervalo=%s)", s.statusInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[supervisor] status loop encerrado (context canceled)")
			return
		case t := <-ticker.C:
			s.publishEdgeStatus(hostname, t)
		}
	}
}

// publishEdgeStatus publica o status retido do dispositivo com as
// métricas de CPU/memória do processo.
func (s *Supervisor) publishEdgeStatus(hostname string, now time.Time) {
	if !s.broker.IsConnected() {
		return
	}

	var (
		cpuPercent  float64
		memPercent  float64
		memRSSBytes uint64
	)
	if s.proc != nil {
		if cpu, err := s.proc.CPUPercent(); err == nil {
			cpuPercent = cpu
		}
		if memInfo, err := s.proc.MemoryInfo(); err == nil {
			memRSSBytes = memInfo.RSS
		}
		if memP, err := s.proc.MemoryPercent(); err == nil {
			memPercent = float64(memP)
		}
	}

	payload := map[string]interface{}{
		"device_id":        s.deviceID,
		"status":           s.Status().String(),
		"timestamp":        now.UTC().Format(time.RFC3339),
		"hostname":         hostname,
		"cpu_percent":      cpuPercent,
		"memory_percent":   memPercent,
		"memory_rss_bytes": memRSSBytes,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[supervisor] marshal edge status: %v", err)
		return
	}

	topic := s.edgeStatusTopic()
	if err := s.broker.Publish(topic, 1, true, b); err != nil {
		log.Printf("[supervisor] publish edge status to %s: %v", topic, err)
		return
	}
	log.Printf("[supervisor] edge status published -> %s", topic)
}

func (s *Supervisor) edgeStatusTopic() string {
	return fmt.Sprintf("traffic/edge-status/%s", s.deviceID)
}
