package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/homepanel-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homepanel-core/internal/metrics"
)

// defaultQueueSize bounds the MQTT sink's pending events.
const defaultQueueSize = 256

// Publisher is the subset of *mqtt.Client used by MQTTSink.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// StateKeyer is implemented by device payloads. The sink mirrors their
// latest state to a retained per-device topic.
type StateKeyer interface {
	StateKey() string
}

// Logger is the logging interface used by the sink.
type Logger interface {
	Warn(msg string, args ...any)
}

// MQTTSink publishes events as JSON to homepanel/house/{house}/events/{name}.
//
// Publish enqueues onto a bounded channel; a single worker drains it. When
// the queue is full the event is dropped and counted.
type MQTTSink struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	queue  chan Event
	logger Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewMQTTSink creates a sink. Call Run to start delivery.
func NewMQTTSink(pub Publisher, topics mqtt.Topics, qos byte, queueSize int, logger Logger) *MQTTSink {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &MQTTSink{
		pub:    pub,
		topics: topics,
		qos:    qos,
		queue:  make(chan Event, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish implements Sink.
func (s *MQTTSink) Publish(house, name string, payload any) {
	ev := Event{House: house, Name: name, Payload: payload, Timestamp: time.Now().UTC()}
	select {
	case s.queue <- ev:
	default:
		metrics.RecordDrop("mqtt")
	}
}

// Run drains the queue until ctx is cancelled, then publishes whatever is
// still queued and returns.
func (s *MQTTSink) Run(ctx context.Context) {
	defer s.stopOnce.Do(func() { close(s.done) })

	for {
		select {
		case ev := <-s.queue:
			s.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-s.queue:
					s.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (s *MQTTSink) Done() <-chan struct{} {
	return s.done
}

func (s *MQTTSink) deliver(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		s.warn("marshalling event", ev, err)
		return
	}
	if err := s.pub.Publish(s.topics.HouseEvent(ev.House, ev.Name), body, s.qos, false); err != nil {
		metrics.RecordDrop("mqtt")
		s.warn("publishing event", ev, err)
	}
	s.deliverState(ev)
}

// deliverState keeps homepanel/house/{house}/devices/{id}/state in step
// with device events. A removal publishes an empty retained message, which
// clears the topic on the broker.
func (s *MQTTSink) deliverState(ev Event) {
	var (
		id   string
		body []byte
	)
	switch ev.Name {
	case DeviceAdded, DeviceUpdated, DeviceApproved:
		k, ok := ev.Payload.(StateKeyer)
		if !ok {
			return
		}
		id = k.StateKey()
		var err error
		if body, err = json.Marshal(ev.Payload); err != nil {
			s.warn("marshalling device state", ev, err)
			return
		}
	case DeviceRemoved:
		m, ok := ev.Payload.(map[string]string)
		if !ok {
			return
		}
		id = m["deviceId"]
	default:
		return
	}
	if id == "" {
		return
	}
	if err := s.pub.Publish(s.topics.HouseDeviceState(ev.House, id), body, s.qos, true); err != nil {
		s.warn("publishing device state", ev, err)
	}
}

func (s *MQTTSink) warn(msg string, ev Event, err error) {
	if s.logger != nil {
		s.logger.Warn("mqtt sink: "+msg, "house", ev.House, "event", ev.Name, "error", err)
	}
}
