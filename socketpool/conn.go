package socketpool

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// Handler answers one inbound frame type for a single connection. It runs on
// the loop.
type Handler func(c *Conn, payload changes.Values) error

// Conn is one websocket in the pool.
type Conn struct {
	id   ulid.ULID
	pool *Pool
	ws   *websocket.Conn

	mu       sync.Mutex
	send     chan []byte
	closed   bool
	handlers map[string]Handler
}

func newConn(p *Pool, ws *websocket.Conn) *Conn {
	c := &Conn{
		id:       ulid.Make(),
		pool:     p,
		ws:       ws,
		send:     make(chan []byte, p.buffer),
		handlers: map[string]Handler{},
	}
	go c.writePump()
	return c
}

func (c *Conn) ID() ulid.ULID { return c.id }

func (c *Conn) String() string {
	return fmt.Sprintf("conn(%s)", c.id)
}

// On makes inbound frames of type answer to fn instead of being dispatched.
func (c *Conn) On(frameType string, fn Handler) {
	c.mu.Lock()
	c.handlers[frameType] = fn
	c.mu.Unlock()
}

// Emit sends f to this connection only.
func (c *Conn) Emit(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", f.Type, err)
	}
	return c.enqueue(data)
}

func (c *Conn) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Conn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(c.pool.writeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			glog.V(1).Infof("strux: writing to %s: %v", c, err)
			c.pool.remove(c)
			return
		}
	}
}

func (c *Conn) readPump() {
	defer func() {
		c.pool.remove(c)
		glog.Infof("strux: %s disconnected", c)
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
			glog.Warningf("strux: %s sent a malformed frame: %q", c, data)
			continue
		}
		c.pool.loop.Post(func() {
			if err := c.handle(in); err != nil {
				glog.Errorf("strux: %s %s: %v", c, in.Type, err)
			}
		})
	}
}

func (c *Conn) handle(in Inbound) error {
	c.mu.Lock()
	fn, ok := c.handlers[in.Type]
	c.mu.Unlock()
	if ok {
		return fn(c, in.Payload)
	}
	payload := in.Payload
	if payload == nil {
		payload = changes.Values{}
	}
	return c.pool.store.Dispatch(store.Message{Type: in.Type, Payload: payload})
}
