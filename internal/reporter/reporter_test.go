package reporter

import (
	"context"
	"encoding/json"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/sua-org/traffic-edge/internal/core"
	"github.com/sua-org/traffic-edge/internal/detect"
)

type publishedMessage struct {
	Topic   string
	Payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []publishedMessage
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, publishedMessage{Topic: topic, Payload: payload})
	return nil
}

func (p *fakePublisher) messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedMessage, len(p.msgs))
	copy(out, p.msgs)
	return out
}

type fakeStatus struct {
	mu sync.Mutex
	s  core.Status
}

func (f *fakeStatus) Status() core.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fakeStatus) set(s core.Status) {
	f.mu.Lock()
	f.s = s
	f.mu.Unlock()
}

type fakeGps struct {
	mu  sync.Mutex
	fix core.GpsFix
	ok  bool
}

func (f *fakeGps) CurrentFix() (core.GpsFix, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fix, f.ok
}

func (f *fakeGps) set(fix core.GpsFix, ok bool) {
	f.mu.Lock()
	f.fix = fix
	f.ok = ok
	f.mu.Unlock()
}

type fakeCamera struct{}

func (fakeCamera) Capture(ctx context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 480, 480)), nil
}

type noopDetector struct{}

func (noopDetector) Detect(ctx context.Context, img image.Image, detectParking bool) ([]core.DetectedObject, error) {
	return nil, nil
}

type reportPayload struct {
	ReportTime       int32   `json:"report_time"`
	ReporterUID      string  `json:"reporter_uid"`
	Latitude         float32 `json:"latitude"`
	Longitude        float32 `json:"longitude"`
	Plates           string  `json:"plates"`
	ParkingAvailable bool    `json:"parking_available"`
}

func newTestReporter(t *testing.T, pub Publisher, status StatusSource, gps GpsProvider, interval time.Duration) *Reporter {
	t.Helper()
	return New(Config{
		DeviceID:  "dev-test",
		Publisher: pub,
		Status:    status,
		Camera:    fakeCamera{},
		Gps:       gps,
		Stage:     detect.NewStage(noopDetector{}),
		Interval:  interval,
	})
}

func waitForMessages(t *testing.T, pub *fakePublisher, n int, timeout time.Duration) []publishedMessage {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if msgs := pub.messages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("got %d messages, want at least %d", len(pub.messages()), n)
	return nil
}

func TestTicksPublishOneReportEach(t *testing.T) {
	pub := &fakePublisher{}
	status := &fakeStatus{s: core.StatusOK}
	gps := &fakeGps{}
	gps.set(core.GpsFix{Latitude: 24.96, Longitude: 121.19, SpeedMs: 10}, true)

	r := newTestReporter(t, pub, status, gps, 20*time.Millisecond)
	r.SetDetectionEnabled(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	msgs := waitForMessages(t, pub, 3, 2*time.Second)
	cancel()

	var last int32
	for i, msg := range msgs[:3] {
		if msg.Topic != TopicPeriodicReport {
			t.Fatalf("message %d on topic %q, want %q", i, msg.Topic, TopicPeriodicReport)
		}
		var p reportPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			t.Fatalf("message %d not valid json: %v", i, err)
		}
		if p.ReporterUID != "dev-test" {
			t.Errorf("message %d reporter_uid = %q", i, p.ReporterUID)
		}
		if p.ReportTime < last {
			t.Errorf("message %d report_time %d < previous %d", i, p.ReportTime, last)
		}
		last = p.ReportTime
	}
}

func TestNoPublishWhenStatusNotOK(t *testing.T) {
	pub := &fakePublisher{}
	status := &fakeStatus{s: core.StatusBrokerDisconnected}
	gps := &fakeGps{}
	gps.set(core.GpsFix{Latitude: 1, Longitude: 2}, true)

	r := newTestReporter(t, pub, status, gps, 10*time.Millisecond)
	r.SetDetectionEnabled(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if n := len(pub.messages()); n != 0 {
		t.Fatalf("published %d messages while disconnected", n)
	}
}

func TestNoPublishWhenDetectionDisabled(t *testing.T) {
	pub := &fakePublisher{}
	status := &fakeStatus{s: core.StatusOK}
	gps := &fakeGps{}
	gps.set(core.GpsFix{Latitude: 1, Longitude: 2}, true)

	r := newTestReporter(t, pub, status, gps, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if n := len(pub.messages()); n != 0 {
		t.Fatalf("published %d messages while detection disabled", n)
	}

	// Religar volta a publicar a partir do próximo tick.
	r.SetDetectionEnabled(true)
	waitForMessages(t, pub, 1, 2*time.Second)
}

func TestTickWithoutFixStillPublishesEmptyNext(t *testing.T) {
	pub := &fakePublisher{}
	status := &fakeStatus{s: core.StatusOK}
	gps := &fakeGps{} // sem fix

	r := newTestReporter(t, pub, status, gps, 15*time.Millisecond)
	r.SetDetectionEnabled(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	msgs := waitForMessages(t, pub, 2, 2*time.Second)
	cancel()

	// O frame sem fix sai com as coordenadas default.
	var p reportPayload
	if err := json.Unmarshal(msgs[1].Payload, &p); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if p.Latitude != -1.0 || p.Longitude != -1.0 {
		t.Errorf("lat/lon = %v/%v, want -1/-1 without fix", p.Latitude, p.Longitude)
	}
	if p.Plates != "" {
		t.Errorf("plates = %q, want empty", p.Plates)
	}
}

func TestReportTimeIsFrameCreationSecond(t *testing.T) {
	pub := &fakePublisher{}
	status := &fakeStatus{s: core.StatusOK}
	gps := &fakeGps{}
	gps.set(core.GpsFix{Latitude: 1, Longitude: 2}, true)

	r := newTestReporter(t, pub, status, gps, 20*time.Millisecond)
	r.SetDetectionEnabled(true)

	// O frame instalado na criação é o primeiro a ser publicado; o
	// report_time dele é o segundo da criação, não o da publicação.
	createdAt := r.ActiveFrame().ReportTimestamp

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	msgs := waitForMessages(t, pub, 1, 2*time.Second)
	cancel()

	var p reportPayload
	if err := json.Unmarshal(msgs[0].Payload, &p); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if p.ReportTime != createdAt {
		t.Errorf("report_time = %d, want creation second %d", p.ReportTime, createdAt)
	}
}

func TestActiveFrameSwapsEachTick(t *testing.T) {
	pub := &fakePublisher{}
	status := &fakeStatus{s: core.StatusOK}
	gps := &fakeGps{}
	gps.set(core.GpsFix{Latitude: 1, Longitude: 2}, true)

	r := newTestReporter(t, pub, status, gps, 15*time.Millisecond)
	r.SetDetectionEnabled(true)

	first := r.ActiveFrame()
	if first == nil {
		t.Fatal("no active frame before Run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	waitForMessages(t, pub, 1, 2*time.Second)
	if r.ActiveFrame() == first {
		t.Fatal("active frame not replaced after first tick")
	}
}

func TestAnnotateDrawsWithinBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	objects := []core.DetectedObject{
		{X: 20, Y: 30, W: 120, H: 40, Label: core.LabelPlate, Score: 0.93, ModelIndex: core.ModelPlate},
		{X: 150, Y: 150, W: 500, H: 500, Label: core.LabelParkingAvailable, Score: 0.5, ModelIndex: core.ModelParking},
		{X: 10, Y: 10, W: 10, H: 10, Label: 42, Score: 0.1},
	}

	out := Annotate(img, objects)
	if out.Bounds() != img.Bounds() {
		t.Fatalf("annotated bounds = %v, want %v", out.Bounds(), img.Bounds())
	}

	// A borda da primeira caixa tem a cor do label de placa.
	c := out.RGBAAt(20, 30)
	if c.R != 255 || c.G != 0 || c.B != 255 {
		t.Errorf("plate box corner = %v, want magenta", c)
	}
}
