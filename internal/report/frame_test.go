package report

import (
	"encoding/json"
	"image"
	"testing"
	"time"

	"github.com/sua-org/traffic-edge/internal/core"
)

func testImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestOcrQueueShedsOnOverflow(t *testing.T) {
	q := NewOcrQueue()

	accepted := 0
	for i := 0; i < 10; i++ {
		if q.Offer(testImage(200, 100)) {
			accepted++
		}
	}

	if accepted != MaxOcrQueueCapacity {
		t.Errorf("accepted = %d, want %d", accepted, MaxOcrQueueCapacity)
	}
	if q.Len() != MaxOcrQueueCapacity {
		t.Errorf("queue length = %d, want %d", q.Len(), MaxOcrQueueCapacity)
	}
}

func TestOcrQueuePollTimesOutWhenEmpty(t *testing.T) {
	q := NewOcrQueue()
	if item, ok := q.Poll(5 * time.Millisecond); ok {
		t.Errorf("Poll on empty queue returned item %v", item)
	}
}

func TestOcrQueuePollReturnsInOrder(t *testing.T) {
	q := NewOcrQueue()
	first := testImage(150, 50)
	second := testImage(160, 60)
	q.Offer(first)
	q.Offer(second)

	item, ok := q.Poll(time.Second)
	if !ok || item.Image != first {
		t.Fatalf("first Poll returned %v, ok=%v", item, ok)
	}
	item, ok = q.Poll(time.Second)
	if !ok || item.Image != second {
		t.Fatalf("second Poll returned %v, ok=%v", item, ok)
	}
}

func TestApplyFixCastsToFloat32(t *testing.T) {
	f := NewFrame()
	f.ApplyFix(core.GpsFix{
		TimeMs:    1700000000000,
		Latitude:  24.968774,
		Longitude: 121.192553,
		SpeedMs:   13.5,
		Heading:   271.25,
	})

	if f.Latitude != float32(24.968774) || f.Longitude != float32(121.192553) {
		t.Errorf("lat/lon = %v/%v", f.Latitude, f.Longitude)
	}
	if f.SpeedMs != 13.5 || f.Heading != 271.25 {
		t.Errorf("speed/heading = %v/%v", f.SpeedMs, f.Heading)
	}
}

func TestWireJSONKeys(t *testing.T) {
	f := NewFrame()
	f.ReportTimestamp = 1700000123
	f.ApplyFix(core.GpsFix{Latitude: 25.0, Longitude: 121.5, SpeedMs: 2.5, Heading: 90})
	f.AppendPlate("ABC1234")
	f.AppendPlate("XYZ9876")
	f.MarkParkingAvailable()

	raw, err := f.WireJSON("device-42")
	if err != nil {
		t.Fatalf("WireJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]any{
		"report_time":       float64(1700000123),
		"reporter_uid":      "device-42",
		"latitude":          float64(25.0),
		"longitude":         float64(121.5),
		"speed_ms":          float64(2.5),
		"heading":           float64(90),
		"plates":            "ABC1234,XYZ9876",
		"parking_available": true,
	}
	for key, val := range want {
		if decoded[key] != val {
			t.Errorf("payload[%q] = %v, want %v", key, decoded[key], val)
		}
	}
	if len(decoded) != len(want) {
		t.Errorf("payload has %d keys, want %d: %v", len(decoded), len(want), decoded)
	}
}

func TestWireJSONEmptyPlates(t *testing.T) {
	f := NewFrame()
	raw, err := f.WireJSON("device-42")
	if err != nil {
		t.Fatalf("WireJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["plates"] != "" {
		t.Errorf("plates = %v, want empty string", decoded["plates"])
	}
	if decoded["parking_available"] != false {
		t.Errorf("parking_available = %v, want false", decoded["parking_available"])
	}
}

func TestPlatesReturnsStableCopy(t *testing.T) {
	f := NewFrame()
	f.AppendPlate("AAA1111")

	snapshot := f.Plates()
	f.AppendPlate("BBB2222")

	if len(snapshot) != 1 || snapshot[0] != "AAA1111" {
		t.Errorf("snapshot mutated: %v", snapshot)
	}
	if got := f.Plates(); len(got) != 2 {
		t.Errorf("plates = %v, want 2 entries", got)
	}
}
