package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classboard-service/internal/app"
	"classboard-service/internal/domain"
	"classboard-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketSubmitReachesMonitor(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	monitor := dial(t, server, "ex-1", domain.ObserverName)
	defer monitor.Close()
	readNext(monitor, t, "joined") // self ack

	student := dial(t, server, "ex-1", "Alice")
	defer student.Close()
	readNext(student, t, "joined")

	// Monitor sees the student arrive.
	_, payload := readNext(monitor, t, "joined")
	if payload["name"] != "Alice" {
		t.Fatalf("expected Alice join on monitor, got %v", payload)
	}

	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"kind":    "fill-blanks",
			"payload": map[string]string{"b1": "apple"},
		},
	}
	if err := student.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	_, payload = readNext(monitor, t, "updated")
	if payload["name"] != "Alice" {
		t.Fatalf("expected Alice update, got %v", payload)
	}
	answer, ok := payload["answer"].(map[string]any)
	if !ok || answer["kind"] != "fill-blanks" {
		t.Fatalf("expected tagged answer payload, got %v", payload["answer"])
	}
}

func TestWebSocketDirectedMessageAfterReconnect(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	monitor := dial(t, server, "ex-1", domain.ObserverName)
	defer monitor.Close()
	readNext(monitor, t, "joined")

	student := dial(t, server, "ex-1", "Kim")
	readNext(student, t, "joined")
	readNext(monitor, t, "joined")
	student.Close()

	// Same name, fresh connection: the directed message must land here.
	rejoined := dial(t, server, "ex-1", "Kim")
	defer rejoined.Close()
	readNext(rejoined, t, "joined")

	message := map[string]any{
		"type": "message",
		"payload": map[string]any{
			"targetName": "Kim",
			"message":    "check step two",
			"from":       "Teacher",
		},
	}
	if err := monitor.WriteJSON(message); err != nil {
		t.Fatalf("write message: %v", err)
	}

	_, payload := readNext(rejoined, t, "messageReceived")
	if payload["message"] != "check step two" || payload["from"] != "Teacher" {
		t.Fatalf("unexpected directed payload: %v", payload)
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws?roomId=ex-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", resp.StatusCode)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.RoomService) {
	t.Helper()
	store := memory.NewStaticExerciseStore(map[string]domain.Exercise{
		"ex-1": sampleExercise(),
	})
	service := app.NewRoomService(
		memory.NewRoomStore(),
		memory.NewExerciseRepository(store, time.Minute),
	)
	wsHandler := NewWSHandler(service)
	restHandler := NewRESTHandler(store, service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	restHandler.Register(mux)
	return httptest.NewServer(mux), service
}

func dial(t *testing.T, server *httptest.Server, roomID, name string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?roomId=" + roomID + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s as %s: %v", roomID, name, err)
	}
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	for {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if expect == "" || msg.Type == expect {
			return msg.Type, msg.Payload
		}
		// Skip fan-out the assertion does not care about (e.g. self updates).
	}
}

func sampleExercise() domain.Exercise {
	return domain.Exercise{
		ID:    "ex-1",
		PIN:   "654321",
		Kind:  domain.KindFillBlanks,
		Title: "Fruit vocabulary",
		Blanks: []domain.Blank{
			{ID: "b1", Index: 0, Word: "apple"},
			{ID: "b2", Index: 1, Word: "banana"},
		},
	}
}
