package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub управляет всеми клиентами доски диспетчера и рассылкой сообщений
type Hub struct {
	clients      map[*Client]bool
	actorClients map[string][]*Client
	broadcast    chan []byte
	Register     chan *Client
	unregister   chan *Client
	mu           sync.RWMutex
	logger       *zap.Logger
	done         chan struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		actorClients: make(map[string][]*Client),
		broadcast:    make(chan []byte, 64),
		Register:     make(chan *Client),
		unregister:   make(chan *Client),
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Run обслуживает регистрацию и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.actorClients[client.ActorID] = append(h.actorClients[client.ActorID], client)
			h.mu.Unlock()
			h.logger.Debug("Клиент доски зарегистрирован", zap.String("actorID", client.ActorID))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("Клиент доски отсоединен", zap.String("actorID", client.ActorID))
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// медленный клиент
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop вызывается под h.mu.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	clients := h.actorClients[client.ActorID]
	for i, c := range clients {
		if c == client {
			h.actorClients[client.ActorID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.actorClients[client.ActorID]) == 0 {
		delete(h.actorClients, client.ActorID)
	}
}

// Broadcast отправляет сообщение всем подключенным клиентам. Не блокирует при переполнении.
func (h *Hub) Broadcast(messageType string, payload interface{}) error {
	messageBytes, err := encode(messageType, payload)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- messageBytes:
	default:
		h.logger.Warn("Очередь рассылки доски переполнена, сообщение отброшено", zap.String("type", messageType))
	}
	return nil
}

// SendMessageToActor отправляет сообщение всем соединениям конкретного актора.
func (h *Hub) SendMessageToActor(actorID string, messageType string, payload interface{}) error {
	messageBytes, err := encode(messageType, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.actorClients[actorID] {
		select {
		case client.Send <- messageBytes:
		default:
		}
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(messageType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}
