/*
Package chat contains the relay's real-time core: connection handling, frame dispatch
and broadcast fan-out.

This file defines the Hub, which owns the set of live connections and a single event
loop. Connection events (connect, frame, close) are serialized through the loop, so a
roster mutation and the snapshot broadcast for it are never interleaved with another
mutation.
*/
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/app/session"
	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

type inboundMsg struct {
	client *Client
	data   []byte
}

// Hub is the broadcast engine and the dispatcher of socket frames.
type Hub struct {
	registry *session.Registry

	// clients is the live connection set. Only the Run goroutine mutates it; mu lets
	// other goroutines read its size.
	clients map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMsg

	// pendingDrop holds clients whose send queue overflowed during the current event.
	// Owned by the Run goroutine.
	pendingDrop []*Client

	maxMessageBytes int
	now             func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger zerolog.Logger
}

// NewHub creates a Hub bound to registry. Chat bodies longer than maxMessageBytes
// are rejected. Call Run to start the event loop.
func NewHub(registry *session.Registry, maxMessageBytes int) *Hub {
	return &Hub{
		registry:        registry,
		clients:         make(map[*Client]struct{}),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		inbound:         make(chan inboundMsg),
		maxMessageBytes: maxMessageBytes,
		now:             time.Now,
		stopChan:        make(chan struct{}),
		done:            make(chan struct{}),
		logger:          logx.Component("Hub"),
	}
}

// Run is the hub's event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	h.logger.Info().Msg("Hub loop started.")

	for {
		select {
		case client := <-h.register:
			h.attach(client)

		case client := <-h.unregister:
			h.detach(client)

		case msg := <-h.inbound:
			h.dispatch(msg.client, msg.data)

		case <-h.stopChan:
			h.closeAll()
			h.logger.Info().Msg("Hub loop stopped.")
			return
		}

		h.drainDrops()
	}
}

// Shutdown stops the loop and closes every connection's send queue. It blocks until
// the loop has exited and is safe to call more than once.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Shutting down hub...")
		close(h.stopChan)
	})
	<-h.done
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register hands a new connection to the loop, which replies with the current
// roster. It returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopChan:
		return false
	}
}

func (h *Hub) submit(client *Client, data []byte) bool {
	select {
	case h.inbound <- inboundMsg{client: client, data: data}:
		return true
	case <-h.stopChan:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopChan:
	}
}

func (h *Hub) attach(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	client.logger.Info().Int("total_clients", total).Msg("Client connected.")

	h.sendTo(client, newUsersFrame(h.registry.Snapshot()))
}

// detach removes client from the live set, closes its send queue and releases its
// user. Detaching twice is a no-op.
func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	total := len(h.clients)
	h.mu.Unlock()

	client.closed = true
	close(client.send)

	client.logger.Info().Int("total_clients", total).Msg("Client disconnected.")

	if u, removed := h.registry.Disconnect(client.id); removed {
		client.logger.Info().Str("user_id", u.ID).Str("name", u.Name).Msg("User disconnected.")
		h.broadcastRoster()
	}
}

func (h *Hub) drainDrops() {
	for len(h.pendingDrop) > 0 {
		client := h.pendingDrop[0]
		h.pendingDrop = h.pendingDrop[1:]

		client.logger.Warn().Msg("Send queue full, dropping client.")
		h.detach(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.closed = true
		close(client.send)
	}
	h.clients = make(map[*Client]struct{})
}

// dispatch applies one inbound frame. A panic while handling a frame is contained to
// that frame.
func (h *Hub) dispatch(client *Client, data []byte) {
	if client.closed {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			client.logger.Error().Interface("panic", rec).Msg("Recovered from panic while handling frame.")
			h.sendError(client, errs.NewError(errs.ErrUnknown))
		}
	}()

	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		client.logger.Warn().Err(err).Bytes("frame", truncate(data, 256)).Msg("Client sent invalid JSON.")
		h.sendError(client, errs.NewError(errs.ErrMalformedFrame, "invalid JSON"))
		return
	}

	client.logger.Debug().Str("frame_type", string(frame.Type)).Msg("Frame received.")

	switch frame.Type {
	case TypeLogin:
		h.handleLogin(client, frame)

	case TypeExit:
		h.handleExit(client)

	case TypeSend:
		h.handleSend(client, frame)

	default:
		client.logger.Warn().Str("frame_type", string(frame.Type)).Msg("Client sent unsupported frame type.")
		h.sendError(client, errs.NewError(errs.ErrUnknownFrameType, string(frame.Type)))
	}
}

func (h *Hub) handleLogin(client *Client, frame InboundFrame) {
	if frame.Name == nil || *frame.Name == "" {
		h.sendError(client, errs.NewError(errs.ErrMalformedFrame, "login requires a name"))
		return
	}

	_, roster := h.registry.Login(client.id, *frame.Name)

	h.sendTo(client, newLoginFrame(roster))
	h.broadcastRoster()
}

func (h *Hub) handleExit(client *Client) {
	if _, removed := h.registry.Logout(client.id); removed {
		h.broadcastRoster()
	}
}

func (h *Hub) handleSend(client *Client, frame InboundFrame) {
	if frame.Message == nil {
		h.sendError(client, errs.NewError(errs.ErrMalformedFrame, "send requires a message"))
		return
	}

	if len(*frame.Message) > h.maxMessageBytes {
		h.sendError(client, errs.NewError(errs.ErrMessageContentTooLong, h.maxMessageBytes))
		return
	}

	var sender *user.User
	if u, ok := h.registry.UserFor(client.id); ok {
		sender = &u
	}

	h.broadcastAll(newChatFrame(*frame.Message, sender, h.now()))
	client.logger.Debug().Bool("authenticated", sender != nil).Msg("Message sent to all users.")
}

// broadcastAll queues frame on every live connection. Connections that are closed
// are skipped; connections whose queue is full are detached after the current event.
func (h *Hub) broadcastAll(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling frame for broadcast.")
		return
	}

	for client := range h.clients {
		h.enqueue(client, payload)
	}
}

// broadcastRoster sends the current roster to every live connection.
func (h *Hub) broadcastRoster() {
	h.broadcastAll(newUsersFrame(h.registry.Snapshot()))
}

// sendTo queues frame on a single connection with the same skip rules as broadcastAll.
func (h *Hub) sendTo(client *Client, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		client.logger.Error().Err(err).Msg("Error marshaling frame for client.")
		return
	}

	h.enqueue(client, payload)
}

func (h *Hub) sendError(client *Client, customErr *errs.CustomError) {
	h.sendTo(client, ErrorFrame{Type: TypeError, Code: customErr.Code, Message: customErr.Message})
}

func (h *Hub) enqueue(client *Client, payload []byte) {
	if client.closed {
		return
	}

	select {
	case client.send <- payload:
	default:
		h.pendingDrop = append(h.pendingDrop, client)
	}
}

func truncate(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[:n]
}
