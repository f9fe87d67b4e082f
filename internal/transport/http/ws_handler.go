package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"classboard-service/internal/app"
	"classboard-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type messagePayload struct {
	TargetName string `json:"targetName,omitempty"`
	TargetID   string `json:"targetId,omitempty"`
	Message    string `json:"message"`
	From       string `json:"from"`
}

type messageReceived struct {
	Message   string    `json:"message"`
	From      string    `json:"from"`
	Timestamp time.Time `json:"timestamp"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the room
// use cases. Each physical connection gets a fresh connection id; identity
// across reconnects is carried by the display name alone.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	displayName := r.URL.Query().Get("name")
	if roomID == "" || displayName == "" {
		http.Error(w, "missing roomId or name", http.StatusBadRequest)
		return
	}
	connectionID := uuid.NewString()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	self, _ := h.service.Join(r.Context(), roomID, connectionID, displayName)

	updates, cancel, err := h.service.Subscribe(roomID, connectionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.DropConnection(roomID, connectionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- toOutbound(update):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Ack the join to this connection; room broadcasts go to the others.
	send <- outboundMessage[any]{Type: "joined", Payload: self}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var answer domain.Answer
			if err := json.Unmarshal(inbound.Payload, &answer); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			h.service.Submit(r.Context(), roomID, displayName, &answer)
		case "message":
			var payload messagePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid message payload"}}
				continue
			}
			h.service.SendDirected(roomID, payload.TargetName, payload.TargetID, payload.Message, payload.From)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func toOutbound(ev app.Event) outboundMessage[any] {
	switch ev.Type {
	case app.EventMessage:
		return outboundMessage[any]{Type: string(ev.Type), Payload: messageReceived{
			Message:   ev.Message,
			From:      ev.From,
			Timestamp: ev.SentAt,
		}}
	default:
		return outboundMessage[any]{Type: string(ev.Type), Payload: ev.Participant}
	}
}
