//go:build integration

package mqtt

import (
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Requires a running MQTT broker at 127.0.0.1:1883.
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func TestPublishedEventReachesConsumer(t *testing.T) {
	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	// A downstream consumer, e.g. a lock controller, with its own session.
	opts := pahomqtt.NewClientOptions().AddBroker("tcp://127.0.0.1:1883").SetClientID("stayflow-test-consumer")
	consumer := pahomqtt.NewClient(opts)
	if token := consumer.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("consumer connect: %v", token.Error())
	}
	defer consumer.Disconnect(250)

	received := make(chan string, 1)
	token := consumer.Subscribe(TopicPrefixEvents+"/it/#", 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		received <- msg.Topic()
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("consumer subscribe: %v", token.Error())
	}

	topic := Topics{}.Event("it", "stay", "stay.booked")
	if err := client.PublishJSON(topic, map[string]string{"entityId": "stay-1"}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case got := <-received:
		if got != topic {
			t.Errorf("received on %q, want %q", got, topic)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message within 5s")
	}
}
