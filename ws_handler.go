package kickoff

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	deadlineTimeout = 10 * time.Second
	pingInterval    = 30 * time.Second
)

// Hub fans out state changes to websocket clients
type Hub struct {
	sync.RWMutex
	clients map[uuid.UUID]chan []byte
}

// NewHub returns hub without clients
func NewHub() *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]chan []byte),
	}
}

func (hub *Hub) addClient() (uuid.UUID, chan []byte) {
	hub.Lock()
	defer hub.Unlock()
	clientID := uuid.New()
	// Single slot: only the latest state matters
	ch := make(chan []byte, 1)
	hub.clients[clientID] = ch
	return clientID, ch
}

func (hub *Hub) deleteClient(clientID uuid.UUID) {
	hub.Lock()
	delete(hub.clients, clientID)
	hub.Unlock()
}

// clientsNum returns number of connected clients
func (hub *Hub) clientsNum() int {
	hub.RLock()
	defer hub.RUnlock()
	return len(hub.clients)
}

// broadcast sends payload to every client. Slow client gets older pending payload replaced instead of blocking others
func (hub *Hub) broadcast(payload []byte) {
	// Exclusive lock: each client channel has a single producer while replacing
	hub.Lock()
	defer hub.Unlock()
	for _, ch := range hub.clients {
		select {
		case <-ch:
		default:
		}
		ch <- payload
	}
}

// wshandler pushes server state to the connected client: once on connect and then on every change
func wshandler(wsUpgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, app *Application) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("scope", SCOPE_WS_HANDLER).Str("event", EVENT_WS_UPGRADER).Str("remote_addr", r.RemoteAddr).Msg("Can't call websocket upgrader")
		return
	}
	clientID, ch := app.hub.addClient()
	log.Info().Str("scope", SCOPE_WS_HANDLER).Str("remote_addr", r.RemoteAddr).Str("client_id", clientID.String()).Msg("State client connected")
	defer func() {
		app.hub.deleteClient(clientID)
		conn.Close()
		log.Info().Str("scope", SCOPE_WS_HANDLER).Str("remote_addr", r.RemoteAddr).Str("client_id", clientID.String()).Msg("Connection has been closed")
	}()

	initial, err := app.statePayload()
	if err != nil {
		log.Error().Err(err).Str("scope", SCOPE_WS_HANDLER).Str("client_id", clientID.String()).Msg("Can't encode state")
		closeWSwithError(conn, websocket.CloseInternalServerErr, "Can't encode state")
		return
	}
	if err := writeWS(conn, websocket.TextMessage, initial); err != nil {
		log.Error().Err(err).Str("scope", SCOPE_WS_HANDLER).Str("client_id", clientID.String()).Msg("Can't write initial state")
		return
	}

	// Client is not expected to send anything: reading only detects disconnection
	quitCh := make(chan struct{})
	go func() {
		defer close(quitCh)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-quitCh:
			return
		case payload := <-ch:
			if err := writeWS(conn, websocket.TextMessage, payload); err != nil {
				log.Error().Err(err).Str("scope", SCOPE_WS_HANDLER).Str("client_id", clientID.String()).Msg("Can't write state")
				return
			}
		case <-ping.C:
			if err := writeWS(conn, websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("scope", SCOPE_WS_HANDLER).Str("event", "ping").Str("client_id", clientID.String()).Msg("Can't ping client")
				return
			}
		}
	}
}

func writeWS(conn *websocket.Conn, messageType int, payload []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(deadlineTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, payload)
}

func closeWSwithError(conn *websocket.Conn, closeCode int, message string) {
	err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, message), time.Now().Add(deadlineTimeout))
	if err != nil {
		log.Error().Err(err).Str("scope", SCOPE_WS_HANDLER).Msg("Can't write close message")
	}
}
