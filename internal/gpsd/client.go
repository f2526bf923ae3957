// Package gpsd implementa o provedor de GPS em cima do daemon gpsd
// (JSON por TCP, modo WATCH).
package gpsd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sua-org/traffic-edge/internal/core"
)

const watchCommand = `?WATCH={"enable":true,"json":true}` + "\n"

// Fixes mais velhos que isso contam como "sem fix".
const fixTTL = 10 * time.Second

// Client mantém o último fix reportado pelo gpsd. Run fica em loop
// lendo relatórios TPV e reconectando com backoff quando o daemon cai.
type Client struct {
	addr string

	mu         sync.Mutex
	hasFix     bool
	fix        core.GpsFix
	receivedAt time.Time
	connected  bool
}

// tpvReport é o subconjunto do relatório TPV do gpsd que interessa.
type tpvReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"` // 0/1 sem fix, 2 = 2D, 3 = 3D
	Time  string  `json:"time"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Speed float64 `json:"speed"` // m/s
	Track float64 `json:"track"` // graus
}

func New(addr string) *Client {
	return &Client{addr: addr}
}

// NewFromEnv lê GPSD_ADDR (default localhost:2947).
func NewFromEnv() *Client {
	addr := strings.TrimSpace(os.Getenv("GPSD_ADDR"))
	if addr == "" {
		addr = "localhost:2947"
	}
	return New(addr)
}

// Run conecta no gpsd e consome relatórios até o contexto ser cancelado.
func (c *Client) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.watch(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("[gpsd] connection lost: %v (retry in %s)", err, backoff)
		}

		c.setConnected(false)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Client) watch(ctx context.Context) error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial gpsd: %w", err)
	}
	defer conn.Close()

	// Derruba a conexão quando o contexto cancelar, para destravar o Read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return fmt.Errorf("send watch: %w", err)
	}

	c.setConnected(true)
	log.Printf("[gpsd] watching %s", c.addr)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		c.handleLine(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("gpsd stream closed")
}

func (c *Client) handleLine(line []byte) {
	var report tpvReport
	if err := json.Unmarshal(line, &report); err != nil {
		return
	}
	if report.Class != "TPV" || report.Mode < 2 {
		return
	}

	timeMs := time.Now().UnixMilli()
	if report.Time != "" {
		if t, err := time.Parse(time.RFC3339, report.Time); err == nil {
			timeMs = t.UnixMilli()
		}
	}

	c.mu.Lock()
	c.hasFix = true
	c.receivedAt = time.Now()
	c.fix = core.GpsFix{
		TimeMs:    timeMs,
		Latitude:  report.Lat,
		Longitude: report.Lon,
		SpeedMs:   float32(report.Speed),
		Heading:   float32(report.Track),
	}
	c.mu.Unlock()
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Available diz se o GPS está utilizável (daemon conectado). É o
// predicado que o supervisor checa.
func (c *Client) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// CurrentFix retorna o último fix válido, se houver um recente.
func (c *Client) CurrentFix() (core.GpsFix, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasFix || time.Since(c.receivedAt) > fixTTL {
		return core.GpsFix{}, false
	}
	return c.fix, true
}
