// Package mqttbridge republishes receiver-scope events onto an MQTT
// broker, grounded on the teacher's mqtt_publisher.go: paho.mqtt.golang
// client with auto-reconnect, a background goroutine driven by a
// context, and a small JSON payload envelope per publish.
package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cwsl/sdrctl/internal/config"
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/hub"
	"github.com/cwsl/sdrctl/internal/receiver"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// Bridge republishes every receiver-scope event as one MQTT message.
type Bridge struct {
	client mqtt.Client
	cfg    config.MQTTConfig
}

// payload is the wire envelope published for each event.
type payload struct {
	ID        int64  `json:"id"`
	Synthetic bool   `json:"synthetic"`
	Kind      string `json:"kind"`
	Seconds   uint64 `json:"ts_seconds"`
	Nanos     uint32 `json:"ts_nanos"`
}

// New connects to the configured broker and returns a Bridge ready to
// attach to a receiver façade's event stream.
func New(cfg config.MQTTConfig) (*Bridge, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("mqttbridge: connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqttbridge: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttbridge: failed to connect: %w", token.Error())
	}
	return &Bridge{client: client, cfg: cfg}, nil
}

// Attach subscribes to r's receiver-scope hub and republishes every event
// until ctx is cancelled, at which point it unsubscribes.
func (b *Bridge) Attach(ctx context.Context, r *receiver.Facade) {
	done := make(chan struct{})
	var connID hub.ConnID

	r.Subscribe(func(ev events.Event) {
		b.publish(ev)
	}, func(code sdrtype.ErrorKind, id hub.ConnID) {
		connID = id
		close(done)
	})

	<-done
	go func() {
		<-ctx.Done()
		r.Unsubscribe(connID)
	}()
}

func (b *Bridge) publish(ev events.Event) {
	h := ev.CommonHeader()
	p := payload{
		ID:        h.ID,
		Synthetic: h.ID < 0,
		Kind:      fmt.Sprintf("%T", ev),
		Seconds:   h.Timestamp.Seconds,
		Nanos:     h.Timestamp.Nanos,
	}
	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("mqttbridge: marshal failed: %v", err)
		return
	}
	token := b.client.Publish(b.cfg.Topic, b.cfg.QoS, false, data)
	token.WaitTimeout(time.Second)
}

// Close disconnects from the broker.
func (b *Bridge) Close() { b.client.Disconnect(250) }
