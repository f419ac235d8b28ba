package subscriber

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/service"
)

var _ service.LocationProvider = (*LocationProvider)(nil)

const (
	topicFormat     = "tracker/%s/location"
	subackFailure   = 0x80
	disconnectQuiet = 250
)

type mqttClient interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

type subscribeResult interface {
	Result() map[string]byte
}

type locationMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// LocationProvider turns the device's MQTT location topic into samples.
type LocationProvider struct {
	client mqttClient
	topic  string
	last   atomic.Pointer[domain.LocationSample]

	now func() time.Time

	mu          sync.Mutex
	callback    func(domain.LocationSample)
	minSpacing  time.Duration
	lastEmitted time.Time
}

func Topic(deviceID string) string {
	return fmt.Sprintf(topicFormat, deviceID)
}

func NewLocationProvider(client mqttClient, deviceID string) *LocationProvider {
	return &LocationProvider{client: client, topic: Topic(deviceID), now: time.Now}
}

func (p *LocationProvider) LastKnownLocation() (domain.Point, bool) {
	s := p.last.Load()
	if s == nil {
		return domain.Point{}, false
	}
	return s.Point, true
}

// Subscribe starts delivering samples to fn. Samples received closer than
// half of interval to the previously delivered one are coalesced. Spacing is
// measured on the local receive clock, never on device timestamps. A broker
// refusing the subscription yields domain.ErrPermissionDenied.
func (p *LocationProvider) Subscribe(interval time.Duration, fn func(domain.LocationSample)) error {
	p.mu.Lock()
	p.callback = fn
	p.minSpacing = interval / 2
	p.lastEmitted = time.Time{}
	p.mu.Unlock()

	token := p.client.Subscribe(p.topic, 1, p.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		p.clearCallback()
		return fmt.Errorf("subscribe %s: %w", p.topic, err)
	}
	if res, ok := token.(subscribeResult); ok {
		for topic, code := range res.Result() {
			if code == subackFailure {
				p.clearCallback()
				return fmt.Errorf("subscribe %s: %w", topic, domain.ErrPermissionDenied)
			}
		}
	}
	log.Printf("[Location] subscribed to %s", p.topic)
	return nil
}

func (p *LocationProvider) Unsubscribe() error {
	p.clearCallback()
	token := p.client.Unsubscribe(p.topic)
	if !token.WaitTimeout(disconnectQuiet * time.Millisecond) {
		return fmt.Errorf("unsubscribe %s: timed out", p.topic)
	}
	return token.Error()
}

func (p *LocationProvider) clearCallback() {
	p.mu.Lock()
	p.callback = nil
	p.mu.Unlock()
}

func (p *LocationProvider) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	received := p.now()

	var raw locationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("[Location] invalid message on %s: %v", msg.Topic(), err)
		return
	}

	if err := validateLocationMessage(&raw); err != nil {
		log.Printf("[Location] validation error: %v", err)
		return
	}

	sample := domain.LocationSample{
		Point:     domain.Point{Lat: raw.Latitude, Lng: raw.Longitude},
		Timestamp: time.Unix(raw.Timestamp, 0),
	}
	p.last.Store(&sample)

	p.mu.Lock()
	fn := p.callback
	if fn != nil && !p.lastEmitted.IsZero() && received.Sub(p.lastEmitted) < p.minSpacing {
		fn = nil
	}
	if fn != nil {
		p.lastEmitted = received
	}
	p.mu.Unlock()

	if fn != nil {
		fn(sample)
	}
}

func validateLocationMessage(msg *locationMessage) error {
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
