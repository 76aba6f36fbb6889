// Package devtools est un client minimal du Chrome DevTools Protocol :
// découverte des onglets via /json et JSON-RPC sur WebSocket.
package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/patrickprogramme/captionsync/internal/logging"
)

// ErrClosed : la connexion est fermée (onglet fermé, navigateur quitté...).
var ErrClosed = errors.New("devtools connection closed")

// taille max d'un message : les player responses font plusieurs centaines de Ko
const readLimit = 64 << 20

// taille du buffer d'événements ; au-delà les événements sont perdus (loggés)
const eventBuffer = 256

// Event est une notification CDP ("method" sans "id").
type Event struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Error est une erreur renvoyée par le navigateur pour un appel.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("devtools error %d: %s", e.Code, e.Message)
}

type message struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Client : une connexion WebSocket vers une cible (onglet).
// Call est sûr en concurrence ; les réponses sont corrélées par id.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger
	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan message
	err     error

	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
}

// Dial ouvre la connexion et démarre la goroutine de lecture.
func Dial(ctx context.Context, wsURL string, logger *slog.Logger) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("devtools dial %s: %w", wsURL, err)
	}
	conn.SetReadLimit(readLimit)

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:    conn,
		logger:  logging.Component(logger, "devtools"),
		pending: make(map[int64]chan message),
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go c.readLoop(readCtx)
	return c, nil
}

// Events : flux des notifications. Fermé quand la connexion se termine.
func (c *Client) Events() <-chan Event { return c.events }

// Done est fermé quand la connexion se termine.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err retourne la cause de fin de connexion (nil tant qu'elle est ouverte).
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Call envoie method(params) et décode le résultat dans result (peut être nil).
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	ch := make(chan message, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(request{ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("devtools %s: encode params: %w", method, err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("devtools %s: write: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("devtools %s: %w", method, c.Err())
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("devtools %s: %w", method, resp.Error)
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("devtools %s: decode result: %w", method, err)
		}
		return nil
	}
}

// Close ferme la connexion ; idempotent.
func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.cancel()
	<-c.done
	return err
}

func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		close(c.events)
		close(c.done)
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.fail(err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("ignoring malformed message", slog.Any("error", err))
			continue
		}

		if msg.ID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}

		if msg.Method == "" {
			continue
		}
		select {
		case c.events <- Event{Method: msg.Method, Params: msg.Params}:
		default:
			c.logger.Warn("event dropped, buffer full", slog.String("method", msg.Method))
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
}
