// internal/core/types.go
package core

// GpsFix é um snapshot imutável da telemetria GPS do veículo.
type GpsFix struct {
	// UNIX, em milissegundos
	TimeMs    int64
	Latitude  float64
	Longitude float64
	SpeedMs   float32 // m/s
	Heading   float32 // graus
}

// Índices dos modelos de detecção.
const (
	ModelPlate   = 0
	ModelParking = 1
)

// Labels relevantes por modelo. O espaço de labels é definido pelo
// detector; só estes dois importam para o pipeline.
const (
	LabelPlate            = 0 // modelo 0
	LabelParkingAvailable = 1 // modelo 1: vaga livre
)

// DetectedObject é uma bounding box retornada por um dos detectores.
type DetectedObject struct {
	X, Y, W, H float32
	Label      int
	Score      float32
	ModelIndex int // 0 = placa, 1 = estacionamento
}

// TrafficAlert é um alerta de trânsito recebido via canal push.
type TrafficAlert struct {
	Type        int    `json:"type"`
	Timestamp   int32  `json:"timestamp"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Status representa a conectabilidade do app. O orquestrador só roda
// quando o status é StatusOK.
type Status int

const (
	StatusOK Status = iota
	StatusPermissionsMissing
	StatusGpsUnavailable
	StatusBrokerDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPermissionsMissing:
		return "permissions_missing"
	case StatusGpsUnavailable:
		return "gps_unavailable"
	case StatusBrokerDisconnected:
		return "broker_disconnected"
	}
	return "unknown"
}
