// Subscriber de depuração: assina os tópicos do pipeline e imprime os
// relatórios e alertas como JSON legível. Útil no bring-up de campo.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sua-org/traffic-edge/internal/mqttclient"
	"github.com/sua-org/traffic-edge/internal/reporter"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[debug] aviso: não foi possível carregar .env: %v", err)
	}

	topics := []string{
		getenv("MQTT_DEBUG_TOPIC", reporter.TopicPeriodicReport),
		"traffic/alerts",
		"traffic/edge-status/+",
	}

	mqttCli, err := mqttclient.NewClientFromEnv("traffic-edge-debug-subscriber")
	if err != nil {
		log.Fatalf("erro ao conectar no MQTT: %v", err)
	}
	defer mqttCli.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for _, topic := range topics {
		if err := mqttCli.Subscribe(topic, 1, handleMessage); err != nil {
			log.Fatalf("erro ao assinar tópico %s: %v", topic, err)
		}
		log.Printf("[debug] subscribed to topic: %s", topic)
	}

	go func() {
		<-sig
		log.Println("[debug] sinal recebido, encerrando subscriber...")
		cancel()
	}()

	<-ctx.Done()
	time.Sleep(500 * time.Millisecond)
}

func handleMessage(topic string, payload []byte) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		log.Printf("[debug] %s: payload não-JSON (%d bytes): %s", topic, len(payload), string(payload))
		return
	}

	pretty, _ := json.MarshalIndent(raw, "", "  ")
	log.Printf("[debug] %s:\n%s", topic, string(pretty))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
