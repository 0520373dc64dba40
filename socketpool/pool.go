package socketpool

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/component"
	"github.com/delaneyj/strux/store"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

var (
	ErrUnknownConn = errors.New("no such connection")
	ErrClosed      = errors.New("connection closed")
)

// Pool relays a store over websockets. Inbound frames become dispatches run
// on the loop; every action the store reduces goes back out to every
// connection.
type Pool struct {
	store    *store.Store
	loop     *component.Loop
	upgrader websocket.Upgrader
	names    func(changes.ClassID) string

	buffer       int
	writeTimeout time.Duration

	mu        sync.RWMutex
	conns     map[ulid.ULID]*Conn
	onConnect []func(*Conn)
	last      uint64
	hasLast   bool
}

type Option func(*Pool)

// WithClassNames sets how class ids are rendered in change frames.
func WithClassNames(fn func(changes.ClassID) string) Option {
	return func(p *Pool) {
		p.names = fn
	}
}

// WithBuffer sets how many frames may wait for a slow connection before it
// is dropped.
func WithBuffer(n int) Option {
	return func(p *Pool) {
		p.buffer = n
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.writeTimeout = d
	}
}

func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(p *Pool) {
		p.upgrader.CheckOrigin = fn
	}
}

func New(s *store.Store, loop *component.Loop, opts ...Option) *Pool {
	p := &Pool{
		store:        s,
		loop:         loop,
		names:        changes.ClassID.String,
		buffer:       64,
		writeTimeout: 10 * time.Second,
		conns:        map[ulid.ULID]*Conn{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Bind subscribes the pool to its store. Like anything touching the store it
// must run on the loop.
func (p *Pool) Bind() (unbind func()) {
	return p.store.Subscribe(p.relay)
}

func (p *Pool) relay(action store.Action) error {
	switch action.(type) {
	case store.StateChange, *store.StateChange:
		change, ok := p.store.MostRecentChange()
		if !ok || len(change.Delta) == 0 {
			return nil
		}
		return p.Emit(changeFrame(p.names(change.Class), change.Delta))
	}
	return p.Emit(Frame{
		Type:   FrameAction,
		Action: action.ActionType(),
		State:  p.store.App(),
	})
}

// OnConnect registers fn to run, on the loop, for every new connection
// before it starts reading.
func (p *Pool) OnConnect(fn func(c *Conn)) {
	p.mu.Lock()
	p.onConnect = append(p.onConnect, fn)
	p.mu.Unlock()
}

func (p *Pool) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("strux: websocket upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	c := newConn(p, ws)

	err = p.loop.Do(r.Context(), func() error {
		p.mu.Lock()
		p.conns[c.id] = c
		hooks := p.onConnect
		p.mu.Unlock()

		if err := c.Emit(Frame{Type: FrameSnapshot, State: p.store.App()}); err != nil {
			return err
		}
		for _, fn := range hooks {
			fn(c)
		}
		return nil
	})
	if err != nil {
		glog.Warningf("strux: registering %s: %v", c, err)
		p.remove(c)
		return
	}
	glog.Infof("strux: %s connected from %s", c, r.RemoteAddr)
	go c.readPump()
}

// Emit sends f to every connection. A frame identical to the previous
// broadcast is skipped.
func (p *Pool) Emit(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", f.Type, err)
	}
	sum := xxhash.Sum64(data)

	p.mu.Lock()
	if p.hasLast && p.last == sum {
		p.mu.Unlock()
		glog.V(2).Infof("strux: skipping repeated %s frame", f.Type)
		return nil
	}
	p.last, p.hasLast = sum, true
	conns := make([]*Conn, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.Unlock()

	for _, c := range conns {
		if err := c.enqueue(data); err != nil {
			glog.Warningf("strux: dropping %s: %v", c, err)
			p.remove(c)
		}
	}
	return nil
}

// EmitTo sends f to one connection.
func (p *Pool) EmitTo(id ulid.ULID, f Frame) error {
	p.mu.RLock()
	c, ok := p.conns[id]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConn, id)
	}
	return c.Emit(f)
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Close drops every connection.
func (p *Pool) Close() {
	p.mu.Lock()
	conns := p.conns
	p.conns = map[ulid.ULID]*Conn{}
	p.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

func (p *Pool) remove(c *Conn) {
	p.mu.Lock()
	if cur, ok := p.conns[c.id]; ok && cur == c {
		delete(p.conns, c.id)
	}
	p.mu.Unlock()
	c.close()
}
