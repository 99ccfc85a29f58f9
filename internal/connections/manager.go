package connections

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/logger"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// DefaultTimeouts provides sensible default timeout values
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// Info describes one open transcript stream
type Info struct {
	ID          string
	ConnectedAt time.Time
}

// Manager tracks the open transcript websockets
type Manager struct {
	connections sync.Map
	timeouts    TimeoutConfig
}

func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers conn and returns the id assigned to it
func (m *Manager) AddConnection(conn *websocket.Conn) Info {
	info := Info{ID: uuid.New().String(), ConnectedAt: time.Now()}
	m.connections.Store(conn, info)
	return info
}

func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.connections.Delete(conn)
}

func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

func (m *Manager) HasConnection(conn *websocket.Conn) bool {
	_, exists := m.connections.Load(conn)
	return exists
}

func (m *Manager) GetTimeouts() TimeoutConfig {
	return m.timeouts
}

// CloseAll sends a close frame to every connection and forgets them
func (m *Manager) CloseAll(reason string) {
	deadline := time.Now().Add(m.timeouts.WriteWait)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)

	m.connections.Range(func(key, value interface{}) bool {
		conn := key.(*websocket.Conn)
		info := value.(Info)
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Debug().Str("component", logger.WEBSOCKET).Err(err).Str("connection_id", info.ID).Msg("Failed to send close frame")
		}
		conn.Close()
		m.connections.Delete(key)
		return true
	})
}
