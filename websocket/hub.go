package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gamerfie/game-vault/metrics"
	"github.com/gamerfie/game-vault/models"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeParticipantJoined is sent when a user joins a challenge
	MessageTypeParticipantJoined MessageType = "participant_joined"
	// MessageTypeParticipantLeft is sent when a user leaves a challenge
	MessageTypeParticipantLeft MessageType = "participant_left"
	// MessageTypeProgressUpdated is sent when a participant records progress
	MessageTypeProgressUpdated MessageType = "progress_updated"
	// MessageTypeChallengeStatusChanged is sent when a challenge moves between upcoming, active and completed
	MessageTypeChallengeStatusChanged MessageType = "challenge_status_changed"
	// MessageTypeChallengeDeleted is sent when the creator deletes a challenge
	MessageTypeChallengeDeleted MessageType = "challenge_deleted"
)

// Message represents a WebSocket message
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// ParticipantPayload is sent with join and leave events
type ParticipantPayload struct {
	ChallengeID      string `json:"challenge_id"`
	UserID           string `json:"user_id"`
	ParticipantCount int    `json:"participant_count"`
}

// ProgressPayload is sent with progress updates
type ProgressPayload struct {
	ChallengeID string `json:"challenge_id"`
	UserID      string `json:"user_id"`
	Progress    int    `json:"progress"`
}

// StatusPayload is sent with status changes
type StatusPayload struct {
	ChallengeID string                 `json:"challenge_id"`
	Status      models.ChallengeStatus `json:"status"`
}

// DeletedPayload is sent when a challenge is deleted
type DeletedPayload struct {
	ChallengeID string `json:"challenge_id"`
}

// challengeMessage is an encoded message scoped to one challenge
type challengeMessage struct {
	challengeID string
	data        []byte
}

// Hub maintains the set of active clients and fans challenge events out to them
type Hub struct {
	// All connected clients
	clients map[*Client]bool

	// Connection count per user
	users map[string]int

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast to subscribed clients
	broadcast chan challengeMessage

	done chan struct{}

	mutex sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		users:      make(map[string]int),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan challengeMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.users[client.userID]++
			h.mutex.Unlock()
			metrics.WebSocketClients.Inc()
			log.Printf("WebSocket: Client connected - User %s (challenge filter %q)", client.userID, client.challengeID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Printf("WebSocket: Client disconnected - User %s", client.userID)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if !client.subscribed(message.challengeID) {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					// Client send buffer full, close connection
					h.drop(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Stop ends the main loop and closes every client
func (h *Hub) Stop() {
	close(h.done)
}

// drop removes a client; callers hold the write lock
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	if h.users[client.userID]--; h.users[client.userID] <= 0 {
		delete(h.users, client.userID)
	}
	close(client.send)
	metrics.WebSocketClients.Dec()
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastParticipantJoined notifies subscribers that a user joined
func (h *Hub) BroadcastParticipantJoined(challengeID, userID string, participantCount int) {
	h.publish(challengeID, MessageTypeParticipantJoined, ParticipantPayload{
		ChallengeID:      challengeID,
		UserID:           userID,
		ParticipantCount: participantCount,
	})
}

// BroadcastParticipantLeft notifies subscribers that a user left
func (h *Hub) BroadcastParticipantLeft(challengeID, userID string, participantCount int) {
	h.publish(challengeID, MessageTypeParticipantLeft, ParticipantPayload{
		ChallengeID:      challengeID,
		UserID:           userID,
		ParticipantCount: participantCount,
	})
}

// BroadcastProgressUpdated notifies subscribers about a participant's new percentage
func (h *Hub) BroadcastProgressUpdated(challengeID, userID string, progress int) {
	h.publish(challengeID, MessageTypeProgressUpdated, ProgressPayload{
		ChallengeID: challengeID,
		UserID:      userID,
		Progress:    progress,
	})
}

// BroadcastChallengeStatusChanged notifies subscribers about a status transition
func (h *Hub) BroadcastChallengeStatusChanged(challengeID string, status models.ChallengeStatus) {
	h.publish(challengeID, MessageTypeChallengeStatusChanged, StatusPayload{
		ChallengeID: challengeID,
		Status:      status,
	})
}

// BroadcastChallengeDeleted notifies subscribers that a challenge is gone
func (h *Hub) BroadcastChallengeDeleted(challengeID string) {
	h.publish(challengeID, MessageTypeChallengeDeleted, DeletedPayload{ChallengeID: challengeID})
}

func (h *Hub) publish(challengeID string, msgType MessageType, payload interface{}) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		log.Printf("WebSocket: Failed to marshal %s message: %v", msgType, err)
		return
	}

	select {
	case h.broadcast <- challengeMessage{challengeID: challengeID, data: data}:
	case <-h.done:
	default:
		log.Printf("WebSocket: Broadcast queue full, dropping %s for challenge %s", msgType, challengeID)
	}
}

// GetConnectedUserCount returns the number of distinct connected users
func (h *Hub) GetConnectedUserCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.users)
}

// IsUserConnected checks if a specific user is connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.users[userID]
	return ok
}
