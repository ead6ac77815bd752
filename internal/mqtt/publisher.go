package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"challan-service/internal/config"
	"challan-service/internal/domain/challan"
)

// Publisher announces challan lifecycle events on an MQTT broker so
// external dashboards can react without polling the store.
type Publisher struct {
	config config.MQTTConfig
	client mqtt.Client
	log    zerolog.Logger
}

func NewPublisher(cfg config.MQTTConfig, log zerolog.Logger) *Publisher {
	return &Publisher{
		config: cfg,
		log:    log,
	}
}

// Connect establishes the broker connection. With MQTT disabled in
// configuration it is a no-op.
func (p *Publisher) Connect() error {
	if !p.config.Enabled {
		p.log.Info().Msg("mqtt publisher disabled in configuration")
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port))
	opts.SetClientID(p.config.ClientID)
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	p.client = mqtt.NewClient(opts)

	p.log.Info().Str("broker", p.config.Broker).Int("port", p.config.Port).Msg("connecting to mqtt broker")
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}
	return nil
}

// Disconnect closes the broker connection.
func (p *Publisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// ChallanCreated publishes a creation event.
func (p *Publisher) ChallanCreated(c challan.Challan) {
	p.publish(p.config.Topic+"/created", c)
}

// ChallanPaid publishes a payment event.
func (p *Publisher) ChallanPaid(c challan.Challan) {
	p.publish(p.config.Topic+"/paid", c)
}

func (p *Publisher) publish(topic string, c challan.Challan) {
	if p.client == nil || !p.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(c)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to marshal challan event")
		return
	}

	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.log.Warn().Err(token.Error()).Str("topic", topic).Msg("failed to publish challan event")
		}
	}()
}
