package link

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"teltonika-codec/internal/pipeline"
)

// ErrNotConnected is returned by Forward while the proxy link is down.
var ErrNotConnected = errors.New("link: not connected")

const (
	dialRetry      = 5 * time.Second
	reconnectDelay = 2 * time.Second
	writeTimeout   = 5 * time.Second
)

// Client mirrors device events and tracking objects to a TCP proxy as NDJSON, one
// JSON object per line. It reconnects until its context is done.
type Client struct {
	addr   string
	logger *slog.Logger
	dial   func(ctx context.Context, addr string) (net.Conn, error)

	mu   sync.Mutex
	conn net.Conn
}

func New(addr string, logger *slog.Logger) *Client {
	var d net.Dialer
	return &Client{
		addr:   addr,
		logger: logger.With("component", "link"),
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// -------------------------------------------------------------------
//                        CONNECTION LOOP
// -------------------------------------------------------------------

// Run dials the proxy and keeps the link up until ctx is done.
func (c *Client) Run(ctx context.Context) {
	for ctx.Err() == nil {
		conn, err := c.dial(ctx, c.addr)
		if err != nil {
			c.logger.Error("dial failed", "addr", c.addr, "err", err)
			sleep(ctx, dialRetry)
			continue
		}

		c.setConn(conn)
		c.logger.Info("connected", "remote", conn.RemoteAddr().String())

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		c.readLoop(conn)
		stop()

		c.clearConn(conn)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("connection closed, reconnecting")
		sleep(ctx, reconnectDelay)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Client) setConn(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) clearConn(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Connected reports whether the proxy link is up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// The proxy sends nothing we act on yet; lines are logged.
func (c *Client) readLoop(conn net.Conn) {
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		c.logger.Debug("incoming line", "line", sc.Text())
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Warn("read error", "err", err)
	}
}

// -------------------------------------------------------------------
//                          NDJSON SEND
// -------------------------------------------------------------------

func (c *Client) sendNDJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	// writes are serialised so lines never interleave
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = c.conn.Write(b)
	return err
}

// -------------------------------------------------------------------
//                     PAYLOADS SENT TO THE PROXY
// -------------------------------------------------------------------

// DeviceInfo is the static view of a device sent on connect.
type DeviceInfo struct {
	IMEI     string
	FWVer    string
	Model    string
	ICCID    string
	RemoteIP string
}

type deviceConnectPayload struct {
	DeviceConnect bool   `json:"device_connect"`
	IMEI          string `json:"imei"`
	FWVer         string `json:"fw_ver,omitempty"`
	Model         string `json:"model,omitempty"`
	ICCID         string `json:"iccid,omitempty"`
	RemoteIP      string `json:"remote_ip,omitempty"`
}

// DeviceConnected announces a device that passed the handshake.
func (c *Client) DeviceConnected(_ context.Context, info DeviceInfo) error {
	return c.sendNDJSON(deviceConnectPayload{
		DeviceConnect: true,
		IMEI:          info.IMEI,
		FWVer:         info.FWVer,
		Model:         info.Model,
		ICCID:         info.ICCID,
		RemoteIP:      info.RemoteIP,
	})
}

// Forward sends tr in its JSON form.
func (c *Client) Forward(_ context.Context, tr *pipeline.TrackingObject) error {
	if tr == nil {
		return nil
	}
	return c.sendNDJSON(tr)
}
