package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const maxListenBackoff = 30 * time.Second

// PGListener feeds pg_notify payloads from the change triggers into the
// ChangeFeed. It holds one dedicated connection and reconnects on failure.
type PGListener struct {
	dsn     string
	channel string
	feed    *services.ChangeFeed
	log     logrus.FieldLogger
}

func NewPGListener(dsn, channel string, feed *services.ChangeFeed, log logrus.FieldLogger) *PGListener {
	return &PGListener{dsn: dsn, channel: channel, feed: feed, log: utils.LoggerOrDefault(log)}
}

// ParseNotification decodes a trigger payload.
func ParseNotification(payload string) (services.ChangeEvent, error) {
	var ev services.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode notification: %w", err)
	}
	if ev.Table == "" || ev.Type == "" {
		return ev, fmt.Errorf("notification without table or type: %q", payload)
	}
	if ev.Schema == "" {
		ev.Schema = "public"
	}
	ev.Origin = ""
	ev.CommittedAt = time.Now()
	return ev, nil
}

// Run listens until ctx ends.
func (l *PGListener) Run(ctx context.Context) {
	backoff := time.Second
	for {
		err := l.listen(ctx, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return
		}
		l.log.WithError(err).WithField("retry_in", backoff).Warn("Change listener lost connection")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff *= 2; backoff > maxListenBackoff {
			backoff = maxListenBackoff
		}
	}
}

func (l *PGListener) listen(ctx context.Context, connected func()) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	connected()
	l.log.WithField("channel", l.channel).Info("Listening for change notifications")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := ParseNotification(n.Payload)
		if err != nil {
			l.log.WithError(err).Warn("Ignoring change notification")
			continue
		}
		l.feed.Publish(ev)
	}
}
