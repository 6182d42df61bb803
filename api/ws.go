package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/openlar/openlar/models"
	"github.com/openlar/openlar/notifications"
	"github.com/pkg/errors"
)

// statusCommand is the inbound operator command. The acting identity is
// taken from the connection's authenticated session, never from the
// message body.
type statusCommand struct {
	NotificationID string                    `json:"notificationId"`
	Status         models.NotificationStatus `json:"targetStatus"`
}

type snapshotPayload struct {
	Notifications []models.Notification `json:"notifications"`
}

type errorPayload struct {
	Error string `json:"error"`
}

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type connection struct {
	// The websocket connection
	ws *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Closed when the hub retires the connection. The send channel itself
	// is never closed because the reader goroutine may still produce error
	// frames after the hub has dropped the connection.
	done      chan struct{}
	closeOnce sync.Once

	// The hub
	h *hub

	// The authenticated operator behind this connection
	user *models.User
}

func (c *connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *connection) reader() {
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			break
		}
		c.handleCommand(message)
	}
	c.ws.Close()
}

func (c *connection) writer() {
	defer c.ws.Close()
	for {
		select {
		case message := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Errorf("Websocket write error: %s", err.Error())
				return
			}
		case <-c.done:
			return
		}
	}
}

// handleCommand applies an inbound status command through the state
// machine. Failures are reported only to this connection; on success the
// cache update reaches every client through the normal broadcast path, so
// no separate acknowledgement is sent.
func (c *connection) handleCommand(message []byte) {
	var cmd statusCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.sendError(errors.Wrap(err, "malformed command"))
		return
	}
	if !c.user.Privileged() {
		c.sendError(notifications.ErrUnauthorized)
		return
	}

	if _, err := c.h.state.Transition(cmd.NotificationID, cmd.Status, c.user); err != nil {
		c.sendError(err)
		return
	}
	log.Debugf("Operator %d set notification %s to %s", c.user.ID, cmd.NotificationID, cmd.Status)
}

func (c *connection) sendError(err error) {
	out, merr := json.Marshal(errorPayload{Error: err.Error()})
	if merr != nil {
		return
	}
	select {
	case c.send <- out:
	case <-c.done:
	default:
	}
}

type hub struct {
	// The working set whose snapshots are broadcast
	cache *notifications.WorkingSet

	// The state machine inbound commands are applied through
	state *notifications.StateMachine

	// Registered connections
	connections map[*connection]bool

	// Register requests from the connections
	register chan *connection

	// Unregister requests from connections
	unregister chan *connection

	shutdown chan struct{}
	stopOnce sync.Once
}

func newHub(cache *notifications.WorkingSet, state *notifications.StateMachine) *hub {
	return &hub{
		cache:       cache,
		state:       state,
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		connections: make(map[*connection]bool),
		shutdown:    make(chan struct{}),
	}
}

func (h *hub) run() {
	sub := h.cache.Subscribe()
	defer sub.Close()

	for {
		select {
		case c := <-h.register:
			h.connections[c] = true
			// Every new connection is synchronized with a full snapshot.
			if payload, err := marshalSnapshot(h.cache.Snapshot()); err == nil {
				c.send <- payload
			}
			log.Debug("Registered new websocket connection")
		case c := <-h.unregister:
			if _, ok := h.connections[c]; ok {
				delete(h.connections, c)
				c.close()
			}
			log.Debug("Unregistered websocket connection")
		case snapshot := <-sub.Out():
			payload, err := marshalSnapshot(snapshot)
			if err != nil {
				log.Errorf("Error marshaling snapshot: %s", err)
				continue
			}
			for c := range h.connections {
				select {
				case c.send <- payload:
				default:
					// A slow consumer is retired rather than allowed to
					// block the broadcast. Its reader may still be alive,
					// so only the done channel is closed.
					delete(h.connections, c)
					c.close()
				}
			}
		case <-h.shutdown:
			for c := range h.connections {
				delete(h.connections, c)
				c.close()
			}
			return
		}
	}
}

func (h *hub) stop() {
	h.stopOnce.Do(func() { close(h.shutdown) })
}

func marshalSnapshot(snapshot []models.Notification) ([]byte, error) {
	if snapshot == nil {
		snapshot = []models.Notification{}
	}
	return json.Marshal(snapshotPayload{Notifications: snapshot})
}

// handleWebsocket upgrades the connection and joins it to the hub. Role
// and token checks have already run in the middleware chain; a rejected
// handshake never reaches this point.
func (g *Gateway) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	user := identityFromRequest(r)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Error upgrading websocket: %s", err)
		return
	}
	c := &connection{
		send: make(chan []byte, 256),
		done: make(chan struct{}),
		ws:   ws,
		h:    g.hub,
		user: user,
	}
	select {
	case c.h.register <- c:
	case <-c.h.shutdown:
		ws.Close()
		return
	}
	defer func() {
		// The run loop is gone after shutdown, so the unregister send must
		// not block forever.
		select {
		case c.h.unregister <- c:
		case <-c.h.shutdown:
		}
	}()
	go c.writer()
	c.reader()
}
