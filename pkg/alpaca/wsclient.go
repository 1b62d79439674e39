package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClient handles the WebSocket connection to the market data stream and message routing.
type WSClient struct {
	url        string
	creds      Credentials
	timeout    time.Duration
	retryDelay time.Duration
	dialer     *websocket.Dialer
	symbols    []string
	handler    func([]byte)
	logger     *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSClient creates a new WebSocket client. timeout bounds the dial and handshake.
func NewWSClient(url string, creds Credentials, timeout time.Duration, logger *zap.Logger) *WSClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WSClient{
		url:        url,
		creds:      creds,
		timeout:    timeout,
		retryDelay: 3 * time.Second,
		dialer:     &websocket.Dialer{HandshakeTimeout: timeout},
		logger:     logger,
	}
}

// SetMessageHandler sets the function to handle incoming frames.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// SetRetryDelay changes the pause between reconnect attempts.
func (c *WSClient) SetRetryDelay(d time.Duration) {
	c.retryDelay = d
}

// Connect dials the stream, authenticates and subscribes to bars for symbols.
// It does not start the listener.
func (c *WSClient) Connect(ctx context.Context, symbols []string) error {
	if c.creds.empty() {
		return fmt.Errorf("%w: missing API key or secret", ErrUnauthorized)
	}
	c.symbols = symbols

	if err := c.dialAndSubscribe(ctx); err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.logger.Info("WebSocket connected", zap.String("url", c.url), zap.Strings("symbols", symbols))
	return nil
}

// Listen reads frames until ctx is done, reconnecting and resubscribing after read errors.
func (c *WSClient) Listen(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.closeConn)
	defer stop()

	for {
		conn := c.current()
		if conn == nil {
			return errors.New("websocket not connected")
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("WebSocket read error", zap.Error(err))

			// Retry reconnecting until the context ends
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.retryDelay):
				}
				if err := c.dialAndSubscribe(ctx); err != nil {
					c.logger.Warn("Retrying reconnect...", zap.Error(err))
					continue
				}
				c.logger.Info("Reconnected successfully")
				break
			}
			if ctx.Err() != nil {
				c.closeConn()
				return ctx.Err()
			}
			continue // Start listening again with the new connection
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// Close sends a close frame and drops the connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *WSClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *WSClient) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *WSClient) dialAndSubscribe(ctx context.Context) error {
	newConn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	if err := c.handshake(newConn); err != nil {
		_ = newConn.Close()
		return err
	}

	// Replace the current connection
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = newConn
	c.mu.Unlock()
	return nil
}

// handshake waits for the welcome frame, authenticates and subscribes.
func (c *WSClient) handshake(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	defer conn.SetReadDeadline(time.Time{})

	if err := awaitControl(conn, "connected"); err != nil {
		return err
	}

	auth := authRequest{Action: "auth", Key: c.creds.KeyID, Secret: c.creds.SecretKey}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("websocket auth failed: %w", err)
	}
	if err := awaitControl(conn, "authenticated"); err != nil {
		return err
	}

	sub := subscribeRequest{Action: "subscribe", Bars: c.symbols}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}
	return awaitSubscription(conn)
}

// awaitControl reads frames until a success message with the wanted text arrives.
func awaitControl(conn *websocket.Conn, want string) error {
	for {
		msgs, err := readMessages(conn)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			switch {
			case m.Type == MsgError:
				return streamError(m)
			case m.Type == MsgSuccess && m.Msg == want:
				return nil
			}
		}
	}
}

func awaitSubscription(conn *websocket.Conn) error {
	for {
		msgs, err := readMessages(conn)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			switch m.Type {
			case MsgError:
				return streamError(m)
			case MsgSubscription:
				return nil
			}
		}
	}
}

func readMessages(conn *websocket.Conn) ([]StreamMessage, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket read: %w", err)
	}
	var msgs []StreamMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode stream frame: %w", err)
	}
	return msgs, nil
}

func streamError(m StreamMessage) error {
	// 401 not authenticated, 402 auth failed, 404 auth timeout
	switch m.Code {
	case 401, 402, 404:
		return fmt.Errorf("%w: stream error %d: %s", ErrUnauthorized, m.Code, m.Msg)
	default:
		return fmt.Errorf("stream error %d: %s", m.Code, m.Msg)
	}
}
