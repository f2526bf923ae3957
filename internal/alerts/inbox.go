// Package alerts mantém a lista curta de alertas de trânsito recebidos
// via canal push.
package alerts

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/sua-org/traffic-edge/internal/core"
)

// Quantos alertas ficam na lista. O mais novo entra na frente; o mais
// velho sai quando estoura.
const MaxAlerts = 3

// Inbox recebe payloads de alerta e mantém a lista limitada, MRU
// primeiro. Alertas malformados são rejeitados inteiros.
type Inbox struct {
	mu     sync.Mutex
	alerts []core.TrafficAlert

	// Hook opcional para a superfície de exibição.
	onChange func(alerts []core.TrafficAlert)
}

func NewInbox() *Inbox {
	return &Inbox{}
}

// SetChangeHook registra o callback chamado a cada alerta aceito, com um
// snapshot da lista.
func (in *Inbox) SetChangeHook(hook func(alerts []core.TrafficAlert)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onChange = hook
}

// pushEnvelope é o envelope do canal push; o alerta em si viaja como
// string JSON no campo "message".
type pushEnvelope struct {
	Message string `json:"message"`
}

// OnPush consome o envelope cru entregue pelo canal push.
func (in *Inbox) OnPush(envelope []byte) {
	var env pushEnvelope
	if err := json.Unmarshal(envelope, &env); err != nil {
		log.Printf("[alerts] invalid push envelope: %v", err)
		return
	}
	if env.Message == "" {
		log.Printf("[alerts] push envelope without message field")
		return
	}
	if err := in.OnAlert([]byte(env.Message)); err != nil {
		log.Printf("[alerts] alert rejected: %v", err)
	}
}

// alertPayload usa ponteiros para detectar campo ausente; qualquer campo
// faltando rejeita o alerta inteiro.
type alertPayload struct {
	Timestamp   *int32  `json:"timestamp"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *int    `json:"type"`
}

// OnAlert interpreta o JSON do alerta e o insere no topo da lista.
func (in *Inbox) OnAlert(payload []byte) error {
	var p alertPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("parse alert: %w", err)
	}
	if p.Timestamp == nil || p.Title == nil || p.Description == nil || p.Type == nil {
		return fmt.Errorf("alert missing required fields")
	}

	alert := core.TrafficAlert{
		Type:        *p.Type,
		Timestamp:   *p.Timestamp,
		Title:       *p.Title,
		Description: *p.Description,
	}

	in.mu.Lock()
	if len(in.alerts) >= MaxAlerts {
		in.alerts = in.alerts[:MaxAlerts-1]
	}
	in.alerts = append([]core.TrafficAlert{alert}, in.alerts...)
	hook := in.onChange
	snapshot := in.snapshotLocked()
	in.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
	return nil
}

// Alerts retorna um snapshot da lista, mais novo primeiro.
func (in *Inbox) Alerts() []core.TrafficAlert {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.snapshotLocked()
}

func (in *Inbox) snapshotLocked() []core.TrafficAlert {
	out := make([]core.TrafficAlert, len(in.alerts))
	copy(out, in.alerts)
	return out
}
