package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Transport is the slice of a message broker the bridge uses.
type Transport interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func() error, err error)
	Close()
}

type natsTransport struct {
	conn *nats.Conn
}

// ConnectNATS dials the broker and keeps reconnecting for the life of the
// process.
func ConnectNATS(url string, log logrus.FieldLogger) (Transport, error) {
	log = utils.LoggerOrDefault(log)
	conn, err := nats.Connect(url,
		nats.Name("cafein-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &natsTransport{conn: conn}, nil
}

func (t *natsTransport) Publish(subject string, data []byte) error {
	return t.conn.Publish(subject, data)
}

func (t *natsTransport) Subscribe(subject string, handler func([]byte)) (func() error, error) {
	sub, err := t.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

func (t *natsTransport) Close() {
	t.conn.Close()
}

// NATSBridge relays change events between instances. Local events are
// published with this instance's origin id; events from peers are
// re-published on the local feed and never forwarded again.
type NATSBridge struct {
	feed      *services.ChangeFeed
	transport Transport
	subject   string
	origin    string
	log       logrus.FieldLogger

	sub         *services.Subscription
	unsubscribe func() error
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

func NewNATSBridge(feed *services.ChangeFeed, transport Transport, subject string, log logrus.FieldLogger) *NATSBridge {
	return &NATSBridge{
		feed:      feed,
		transport: transport,
		subject:   subject,
		origin:    uuid.NewString(),
		log:       utils.LoggerOrDefault(log),
	}
}

func (b *NATSBridge) Origin() string {
	return b.origin
}

func (b *NATSBridge) Start(ctx context.Context) error {
	unsubscribe, err := b.transport.Subscribe(b.subject, b.receive)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	b.unsubscribe = unsubscribe

	b.sub = b.feed.Subscribe(services.ChangeFilter{})
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case ev, ok := <-b.sub.Events():
				if !ok {
					return
				}
				b.forward(ev)
			case <-ctx.Done():
				return
			}
		}
	}()

	b.log.WithFields(logrus.Fields{"subject": b.subject, "origin": b.origin}).Info("Change relay started")
	return nil
}

func (b *NATSBridge) forward(ev services.ChangeEvent) {
	if ev.Origin != "" {
		return
	}
	ev.Origin = b.origin
	data, err := json.Marshal(ev)
	if err != nil {
		b.log.WithError(err).Error("Error encoding change event")
		return
	}
	if err := b.transport.Publish(b.subject, data); err != nil {
		b.log.WithError(err).Warn("Error relaying change event")
	}
}

func (b *NATSBridge) receive(data []byte) {
	var ev services.ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		b.log.WithError(err).Warn("Dropping malformed change event")
		return
	}
	if ev.Origin == "" || ev.Origin == b.origin {
		return
	}
	b.feed.Publish(ev)
}

// Close stops relaying and releases the feed subscription.
func (b *NATSBridge) Close() {
	b.closeOnce.Do(func() {
		if b.unsubscribe != nil {
			if err := b.unsubscribe(); err != nil {
				b.log.WithError(err).Warn("Error unsubscribing change relay")
			}
		}
		if b.sub != nil {
			b.sub.Close()
		}
		b.wg.Wait()
	})
}
