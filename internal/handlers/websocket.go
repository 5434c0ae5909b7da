package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"bucket-list-backend/internal/graph"

	"github.com/gorilla/websocket"
	gql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/rs/zerolog/log"
)

// Subprotocol is the websocket subprotocol spoken by the subscription transport
const Subprotocol = "graphql-transport-ws"

// Message types of the graphql-transport-ws protocol
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// Close codes of the graphql-transport-ws protocol
const (
	closeBadRequest   = 4400
	closeUnauthorized = 4401
	closeInitTimeout  = 4408
	closeDuplicateID  = 4409
	closeTooManyInits = 4429
)

const (
	defaultInitTimeout    = 10 * time.Second
	defaultMaxSubscribers = 32
)

// JSONSocket is the part of a websocket connection the transport needs
type JSONSocket interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	CloseWithCode(code int, reason string) error
}

type gorillaSocket struct {
	*websocket.Conn
}

func (s gorillaSocket) CloseWithCode(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.Close()
}

type inMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outMessage struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// SubscriptionOptions bound a single socket
type SubscriptionOptions struct {
	InitTimeout      time.Duration
	MaxSubscriptions int
}

// wsConn is one client socket with its running operations keyed by ID
type wsConn struct {
	writeMu sync.Mutex
	socket  JSONSocket
	exec    *graph.Executor
	opts    SubscriptionOptions

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	initialized   bool
	closed        bool
	subscriptions map[string]context.CancelFunc
}

func newWSConn(ctx context.Context, socket JSONSocket, exec *graph.Executor, opts SubscriptionOptions) *wsConn {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = defaultInitTimeout
	}
	if opts.MaxSubscriptions <= 0 {
		opts.MaxSubscriptions = defaultMaxSubscribers
	}
	ctx, cancel := context.WithCancel(ctx)
	return &wsConn{
		socket:        socket,
		exec:          exec,
		opts:          opts,
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: make(map[string]context.CancelFunc),
	}
}

func (c *wsConn) write(msg outMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.WriteJSON(msg)
}

// closeWith terminates the socket once with a protocol close code
func (c *wsConn) closeWith(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.socket.CloseWithCode(code, reason); err != nil {
		log.Debug().Err(err).Int("code", code).Msg("Failed to close websocket")
	}
}

func (c *wsConn) handle(msg inMessage) error {
	switch msg.Type {
	case msgConnectionInit:
		c.mu.Lock()
		already := c.initialized
		c.initialized = true
		c.mu.Unlock()
		if already {
			c.closeWith(closeTooManyInits, "Too many initialisation requests")
			return nil
		}
		return c.write(outMessage{Type: msgConnectionAck})

	case msgPing:
		return c.write(outMessage{Type: msgPong})

	case msgPong:
		return nil

	case msgSubscribe:
		return c.subscribe(msg)

	case msgComplete:
		c.stop(msg.ID)
		return nil

	default:
		c.closeWith(closeBadRequest, fmt.Sprintf("Invalid message type %q", msg.Type))
		return nil
	}
}

func (c *wsConn) subscribe(msg inMessage) error {
	if msg.ID == "" {
		c.closeWith(closeBadRequest, "Subscribe message requires an id")
		return nil
	}

	var req graph.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil || req.Query == "" {
		c.closeWith(closeBadRequest, "Invalid subscribe payload")
		return nil
	}

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		c.closeWith(closeUnauthorized, "Unauthorized")
		return nil
	}
	if _, ok := c.subscriptions[msg.ID]; ok {
		c.mu.Unlock()
		c.closeWith(closeDuplicateID, fmt.Sprintf("Subscriber for %s already exists", msg.ID))
		return nil
	}
	if len(c.subscriptions) >= c.opts.MaxSubscriptions {
		c.mu.Unlock()
		c.closeWith(closeBadRequest, "Too many subscriptions")
		return nil
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.subscriptions[msg.ID] = cancel
	c.mu.Unlock()

	go c.run(ctx, msg.ID, req)
	return nil
}

// run streams one operation's results; queries and mutations yield a single result
func (c *wsConn) run(ctx context.Context, id string, req graph.Request) {
	defer c.stop(id)

	var stream <-chan interface{}
	if graph.OperationType(req.Query, req.OperationName) == "subscription" {
		var err error
		stream, err = c.exec.Subscribe(ctx, req)
		if err != nil {
			c.sendErrors(id, []*gqlerrors.QueryError{gqlerrors.Errorf("%s", err)})
			return
		}
	} else {
		ch := make(chan interface{}, 1)
		ch <- c.exec.Exec(ctx, req)
		close(ch)
		stream = ch
	}

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-stream:
			if !ok {
				if ctx.Err() == nil {
					_ = c.write(outMessage{ID: id, Type: msgComplete})
				}
				return
			}
			resp, ok := v.(*gql.Response)
			if !ok {
				continue
			}
			if resp.Data == nil && len(resp.Errors) > 0 {
				c.sendErrors(id, resp.Errors)
				return
			}
			if err := c.write(outMessage{ID: id, Type: msgNext, Payload: resp}); err != nil {
				log.Debug().Err(err).Str("id", id).Msg("Failed to write result")
				return
			}
		}
	}
}

func (c *wsConn) sendErrors(id string, errs []*gqlerrors.QueryError) {
	if err := c.write(outMessage{ID: id, Type: msgError, Payload: errs}); err != nil {
		log.Debug().Err(err).Str("id", id).Msg("Failed to write error")
	}
}

// stop cancels an operation; unknown IDs are ignored
func (c *wsConn) stop(id string) {
	c.mu.Lock()
	cancel, ok := c.subscriptions[id]
	delete(c.subscriptions, id)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *wsConn) stopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cancel := range c.subscriptions {
		cancel()
		delete(c.subscriptions, id)
	}
}

// serve runs the read loop until the socket fails or the context ends
func (c *wsConn) serve() {
	defer c.cancel()
	defer c.stopAll()

	timer := time.AfterFunc(c.opts.InitTimeout, func() {
		c.mu.Lock()
		initialized := c.initialized
		c.mu.Unlock()
		if !initialized {
			c.closeWith(closeInitTimeout, "Connection initialisation timeout")
		}
	})
	defer timer.Stop()

	for {
		var msg inMessage
		if err := c.socket.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.closeWith(closeBadRequest, "Invalid message")
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		if err := c.handle(msg); err != nil {
			log.Debug().Err(err).Str("type", msg.Type).Msg("Failed to handle websocket message")
			return
		}
	}
}

// SubscriptionHandler upgrades HTTP requests into graphql-transport-ws sockets
type SubscriptionHandler struct {
	exec     *graph.Executor
	opts     SubscriptionOptions
	upgrader websocket.Upgrader
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(exec *graph.Executor, opts SubscriptionOptions) *SubscriptionHandler {
	return &SubscriptionHandler{
		exec: exec,
		opts: opts,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{Subprotocol},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP handles GET /graphql/ws
func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	if conn.Subprotocol() != Subprotocol {
		_ = gorillaSocket{conn}.CloseWithCode(websocket.CloseProtocolError, "Subprotocol not acceptable")
		return
	}

	log.Info().Str("remote_addr", r.RemoteAddr).Msg("WebSocket connection established")
	newWSConn(r.Context(), gorillaSocket{conn}, h.exec, h.opts).serve()
	log.Info().Str("remote_addr", r.RemoteAddr).Msg("WebSocket connection closed")
}
