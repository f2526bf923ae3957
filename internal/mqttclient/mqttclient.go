// internal/mqttclient/mqttclient.go
package mqttclient

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Client struct {
	client mqtt.Client

	// true após CONNACK, false em qualquer connection-lost.
	// O supervisor lê isso como predicado de saúde do broker.
	connected atomic.Bool

	mu   sync.Mutex
	subs map[string]subscription
}

type subscription struct {
	qos     byte
	handler func(topic string, payload []byte)
}

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ClientID    string
	UseTLS      bool
	TLSInsecure bool
}

// NewClientFromEnv monta o client a partir do ambiente:
//
//	MQTT_HOST, MQTT_PORT, MQTT_USERNAME, MQTT_PASSWORD, MQTT_CLIENT_ID
//	MQTT_USE_TLS=true     -> ssl:// com TLS
//	MQTT_TLS_INSECURE=true -> pula verificação de certificado (lab apenas)
func NewClientFromEnv(defaultClientID string) (*Client, error) {
	cfg := Config{
		Host:        getenv("MQTT_HOST", "localhost"),
		Port:        getenvInt("MQTT_PORT", 8883),
		Username:    os.Getenv("MQTT_USERNAME"),
		Password:    os.Getenv("MQTT_PASSWORD"),
		ClientID:    getenv("MQTT_CLIENT_ID", defaultClientID),
		UseTLS:      getenv("MQTT_USE_TLS", "true") == "true",
		TLSInsecure: getenv("MQTT_TLS_INSECURE", "false") == "true",
	}

	return NewClient(cfg)
}

func NewClient(cfg Config) (*Client, error) {
	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "ssl"
	}
	broker := fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)

	c := &Client{subs: make(map[string]subscription)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(20 * time.Second)

	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure,
		})
	}

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetOnConnectHandler(func(cli mqtt.Client) {
		c.connected.Store(true)
		// CleanSession derruba as assinaturas; refaz todas no CONNACK.
		c.resubscribe(cli)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.connected.Store(false)
	})

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", err)
	}

	return c, nil
}

// IsConnected é o boolean de vivacidade observado pelo supervisor.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client.IsConnectionOpen()
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

func (c *Client) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

func (c *Client) resubscribe(cli mqtt.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.mu.Unlock()

	for topic, sub := range subs {
		handler := sub.handler
		cli.Subscribe(topic, sub.qos, func(_ mqtt.Client, msg mqtt.Message) {
			handler(msg.Topic(), msg.Payload())
		})
	}
}

// Disconnect derruba o link sem descartar as assinaturas registradas.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	c.connected.Store(false)
}

// Reconnect tenta restabelecer o link. Usado pelo supervisor quando o
// status entra em broker_disconnected.
func (c *Client) Reconnect() error {
	if c.IsConnected() {
		return nil
	}
	token := c.client.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return fmt.Errorf("mqtt reconnect timeout")
	}
	return token.Error()
}

func (c *Client) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			return x
		}
	}
	return def
}
