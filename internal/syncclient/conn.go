package syncclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/coder/websocket"
)

const maxMsgSize = 64 * 1024

// Conn is one open socket. Write may be called concurrently with Read.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens a Conn to a full socket URL.
type Dialer func(ctx context.Context, socketURL string) (Conn, error)

type wsConn struct {
	c *websocket.Conn
}

// DialWebsocket is the default Dialer.
func DialWebsocket(ctx context.Context, socketURL string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, socketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", redact(socketURL), err)
	}
	c.SetReadLimit(maxMsgSize)
	return &wsConn{c: c}, nil
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}

// SocketURL turns an http(s) server base into the room socket URL with
// the token in the query.
func SocketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("parse server url: unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws/rooms"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func redact(socketURL string) string {
	if i := strings.IndexByte(socketURL, '?'); i >= 0 {
		return socketURL[:i]
	}
	return socketURL
}
