package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Symbols this client wants. Empty set = receive everything.
	symMu   sync.RWMutex
	symbols map[string]bool
}

// wantsSymbol reports whether the client should receive events for symbol.
func (c *Client) wantsSymbol(symbol string) bool {
	c.symMu.RLock()
	defer c.symMu.RUnlock()
	if len(c.symbols) == 0 {
		return true
	}
	return c.symbols[symbol]
}

// sendBackfill replays missed envelopes since fromSeq (exclusive).
func (c *Client) sendBackfill(fromSeq int64) {
	envelopes := c.hub.ReplayRange(fromSeq+1, c.hub.Seq())
	for _, env := range envelopes {
		select {
		case c.send <- env:
		default:
			return // client already backed up, give up on backfill
		}
	}
	if len(envelopes) > 0 {
		log.Printf("[gateway] backfilled %d envelopes from seq=%d", len(envelopes), fromSeq)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: batch queued messages into a single frame
			// with newline separators
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Type    string   `json:"type"`
			Ping    int64    `json:"ping"`
			Symbols []string `json:"symbols"`
		}
		if json.Unmarshal(msg, &base) != nil {
			continue
		}

		switch base.Type {
		case "FILTER":
			c.symMu.Lock()
			c.symbols = make(map[string]bool, len(base.Symbols))
			for _, s := range base.Symbols {
				c.symbols[s] = true
			}
			c.symMu.Unlock()
			log.Printf("[gateway] client filter set: %v", base.Symbols)

		default:
			if base.Ping > 0 {
				pong, _ := json.Marshal(map[string]interface{}{
					"type":      "pong",
					"ping":      base.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				select {
				case c.send <- pong:
				default:
				}
			}
		}
	}
}
