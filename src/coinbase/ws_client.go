package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WSBaseURL is the Coinbase Exchange websocket feed.
	WSBaseURL = "wss://ws-feed.exchange.coinbase.com"
	// WSPingInterval keeps the connection alive between pushes.
	WSPingInterval = 30 * time.Second
	// WSReadTimeout bounds how long a read may block.
	WSReadTimeout = 60 * time.Second
	// WSWriteTimeout bounds how long a write may block.
	WSWriteTimeout = 10 * time.Second
)

// WSClient streams live market data from the public websocket feed.
type WSClient struct {
	conn          *websocket.Conn
	connMutex     sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	handlers      map[string]func(TickerMessage) // product ID -> handler
	handlersMutex sync.RWMutex
}

// TickerMessage is one tick of the "ticker" channel.
type TickerMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
	Time      string `json:"time"`
}

type wsSubscribeRequest struct {
	Type     string      `json:"type"`
	Channels []wsChannel `json:"channels"`
}

type wsChannel struct {
	Name       string   `json:"name"`
	ProductIDs []string `json:"product_ids"`
}

// NewWSClient creates a disconnected websocket client.
func NewWSClient() *WSClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &WSClient{
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string]func(TickerMessage)),
	}
}

// Connect dials the feed and starts the read and ping loops.
func (ws *WSClient) Connect(ctx context.Context) error {
	ws.connMutex.Lock()
	defer ws.connMutex.Unlock()

	if ws.conn != nil {
		return fmt.Errorf("websocket already connected")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, WSBaseURL, nil)
	if err != nil {
		return fmt.Errorf("dialing websocket: %w", err)
	}

	ws.conn = conn

	go ws.readLoop()
	go ws.pingLoop()

	return nil
}

// Disconnect stops the loops and closes the connection.
func (ws *WSClient) Disconnect() error {
	ws.cancel()

	ws.connMutex.Lock()
	defer ws.connMutex.Unlock()

	if ws.conn != nil {
		err := ws.conn.Close()
		ws.conn = nil
		return err
	}
	return nil
}

// SubscribeTicker subscribes to live ticks for one product and routes
// them to the handler.
func (ws *WSClient) SubscribeTicker(productID string, handler func(TickerMessage)) error {
	ws.handlersMutex.Lock()
	if _, exists := ws.handlers[productID]; exists {
		ws.handlersMutex.Unlock()
		return fmt.Errorf("already subscribed: %s", productID)
	}
	ws.handlers[productID] = handler
	ws.handlersMutex.Unlock()

	req := wsSubscribeRequest{
		Type: "subscribe",
		Channels: []wsChannel{
			{Name: "ticker", ProductIDs: []string{productID}},
		},
	}

	if err := ws.sendMessage(req); err != nil {
		ws.handlersMutex.Lock()
		delete(ws.handlers, productID)
		ws.handlersMutex.Unlock()
		return fmt.Errorf("sending subscribe message: %w", err)
	}

	return nil
}

// sendMessage marshals and writes one message to the feed.
func (ws *WSClient) sendMessage(msg interface{}) error {
	ws.connMutex.RLock()
	conn := ws.conn
	ws.connMutex.RUnlock()

	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	conn.SetWriteDeadline(time.Now().Add(WSWriteTimeout))

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop drains the connection and dispatches ticker pushes.
func (ws *WSClient) readLoop() {
	for {
		select {
		case <-ws.ctx.Done():
			return
		default:
			ws.connMutex.RLock()
			conn := ws.conn
			ws.connMutex.RUnlock()

			if conn == nil {
				return
			}

			conn.SetReadDeadline(time.Now().Add(WSReadTimeout))

			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket read error: %v", err)
				}
				return
			}

			ws.handleMessage(data)
		}
	}
}

// pingLoop keeps the connection alive.
func (ws *WSClient) pingLoop() {
	ticker := time.NewTicker(WSPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ws.ctx.Done():
			return
		case <-ticker.C:
			ws.connMutex.RLock()
			conn := ws.conn
			ws.connMutex.RUnlock()

			if conn != nil {
				conn.SetWriteDeadline(time.Now().Add(WSWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Printf("websocket ping failed: %v", err)
				}
			}
		}
	}
}

// handleMessage routes one raw message from the feed.
func (ws *WSClient) handleMessage(data []byte) {
	var msg TickerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("parsing websocket message failed: %v, data: %s", err, string(data))
		return
	}

	switch msg.Type {
	case "ticker":
		ws.handlersMutex.RLock()
		handler, ok := ws.handlers[msg.ProductID]
		ws.handlersMutex.RUnlock()
		if ok && handler != nil {
			handler(msg)
		}
	case "error":
		log.Printf("websocket feed error: %s", string(data))
	}
}

// IsConnected reports whether a connection is currently open.
func (ws *WSClient) IsConnected() bool {
	ws.connMutex.RLock()
	defer ws.connMutex.RUnlock()
	return ws.conn != nil
}
