package notify

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
)

// Announcer publishes alarm firings to an MQTT broker so other systems
// (home automation, dashboards) can react. Each announcement uses a fresh
// connection — simple and stateless.
type Announcer struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

// firedPayload is the JSON body published on each firing.
type firedPayload struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Time  string `json:"time"`
	At    string `json:"at"`
}

// Announce publishes a firing for r observed at the given instant.
func (a *Announcer) Announce(r alarm.Record, at time.Time) error {
	body, err := json.Marshal(firedPayload{
		ID:    r.ID,
		Label: r.Label,
		Time:  r.TimeOfDay(),
		At:    at.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("mqtt: marshal: %w", err)
	}
	return publish(a.Broker, a.ClientID, a.Topic, string(body), a.Username, a.Password)
}

// publish connects to an MQTT broker, publishes a message to the given
// topic, and disconnects.
func publish(broker, clientID, topic, message, username, password string) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second)

	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}

	client := pahomqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: connect timeout")
	}
	if tok.Error() != nil {
		return fmt.Errorf("mqtt: connect: %w", tok.Error())
	}
	defer client.Disconnect(250)

	pub := client.Publish(topic, 0, false, message)
	if !pub.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: publish timeout")
	}
	if pub.Error() != nil {
		return fmt.Errorf("mqtt: publish: %w", pub.Error())
	}
	return nil
}
