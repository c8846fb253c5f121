package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by a wholesale price feed
// WebSocket.
type Client struct {
	apiKey         string
	websocketURL   string
	products       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new market feed stream for the given product codes.
func New(apiKey, websocketURL string, products []string, reconnectDelay, pingInterval time.Duration) domrepo.MarketStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		products:       products,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("market feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("market feed: connected")
	return nil
}

// Subscribe subscribes to configured product codes.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("market feed not connected")
	}
	for _, p := range c.products {
		msg := map[string]string{"type": "subscribe", "product": p}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", p, err)
		}
		log.Printf("market feed: subscribed %s", p)
	}
	return nil
}

type wireTick struct {
	Product string  `json:"product"`
	Market  string  `json:"market"`
	Price   float64 `json:"price"`
	Volume  float64 `json:"volume"`
	TS      int64   `json:"ts"` // ms
}

type wireMessage struct {
	Type string     `json:"type"`
	Data []wireTick `json:"data"`
}

// Read streams PriceTick events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error) {
	ticks := make(chan *models.PriceTick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("market feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("market feed read: %w", err)
					return
				}
				var m wireMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-tick frames
					continue
				}
				if m.Type != "tick" {
					continue
				}
				for _, d := range m.Data {
					tick := &models.PriceTick{
						ProductID: d.Product,
						Market:    d.Market,
						Price:     d.Price,
						Volume:    d.Volume,
						Timestamp: d.TS / 1000,
					}
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
