package nats

import (
	"time"

	"github.com/nats-io/nats.go"
)

type Nats struct {
	Url   string
	Token string
	Conn  *nats.Conn
}

// Connect dials url, authenticating with token when set.
func Connect(name, url, token string) (*Nats, error) {
	n := &Nats{
		Url:   url,
		Token: token,
	}

	if n.Url == "" {
		n.Url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}

	// if token provided
	if n.Token != "" {
		opts = append(opts, nats.Token(n.Token))
	}

	conn, err := nats.Connect(n.Url, opts...)
	if err != nil {
		return nil, err
	}

	n.Conn = conn

	return n, nil
}
