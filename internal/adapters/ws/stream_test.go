package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/aula/internal/app"
	"github.com/okian/aula/internal/adapters/ws"
	"github.com/okian/aula/internal/domain/model"
	"github.com/okian/aula/pkg/logger"
)

type fakeIngestor struct {
	mu     sync.Mutex
	frames []model.EmotionFrame
	err    error
}

func (f *fakeIngestor) Ingest(_ context.Context, frame model.EmotionFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeIngestor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeIngestor) capturedAt(i int) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[i].CapturedAt
}

type wireMessage struct {
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Receipt   string          `json:"receipt"`
	Duplicate bool            `json:"duplicate"`
	Payload   json.RawMessage `json:"payload"`
}

func dial(t *testing.T, handler *ws.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleStream))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wireMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func sendFrame(t *testing.T, conn *websocket.Conn, payload map[string]any) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	if err := conn.WriteJSON(map[string]any{"type": "frame", "payload": json.RawMessage(raw)}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestStream(t *testing.T) {
	_ = logger.Init()

	Convey("Given a connected streaming client", t, func() {
		ingestor := &fakeIngestor{}
		handler := ws.NewHandler(ingestor)
		conn := dial(t, handler)

		welcome := readMessage(t, conn)
		So(welcome.Type, ShouldEqual, "welcome")

		Convey("A frame message is ingested and acked with a receipt", func() {
			sendFrame(t, conn, map[string]any{
				"user_id":    1,
				"session_id": "s1",
				"emotions":   map[string]float64{"happy": 0.9},
				"timestamp":  12.5,
			})

			ack := readMessage(t, conn)
			So(ack.Type, ShouldEqual, "frame_ack")
			So(ack.Status, ShouldEqual, "received")
			So(ack.Receipt, ShouldNotBeEmpty)
			So(ingestor.count(), ShouldEqual, 1)
		})

		Convey("The timestamp field carries the capture instant", func() {
			sendFrame(t, conn, map[string]any{
				"user_id":    1,
				"session_id": "s1",
				"emotions":   map[string]float64{"happy": 0.9},
				"timestamp":  1700000000.5,
			})

			_ = readMessage(t, conn)
			So(ingestor.count(), ShouldEqual, 1)
			So(ingestor.capturedAt(0), ShouldEqual, 1700000000.5)
		})

		Convey("A duplicate frame acks with the duplicate flag", func() {
			ingestor.err = service.ErrDuplicateFrame
			sendFrame(t, conn, map[string]any{
				"user_id":    1,
				"session_id": "s1",
				"emotions":   map[string]float64{"happy": 0.9},
			})

			ack := readMessage(t, conn)
			So(ack.Type, ShouldEqual, "frame_ack")
			So(ack.Status, ShouldEqual, "duplicate")
			So(ack.Receipt, ShouldNotBeEmpty)
			So(ack.Duplicate, ShouldBeTrue)
		})

		Convey("Backpressure is reported per message", func() {
			ingestor.err = service.ErrQueueFull
			sendFrame(t, conn, map[string]any{
				"user_id":    1,
				"session_id": "s1",
				"emotions":   map[string]float64{"happy": 0.9},
			})

			ack := readMessage(t, conn)
			So(ack.Status, ShouldEqual, "backpressure")
		})

		Convey("A frame without required fields is rejected", func() {
			sendFrame(t, conn, map[string]any{"user_id": 1})

			ack := readMessage(t, conn)
			So(ack.Type, ShouldEqual, "error")
			So(ingestor.count(), ShouldEqual, 0)
		})

		Convey("Ping messages are answered", func() {
			So(conn.WriteJSON(map[string]any{"type": "ping"}), ShouldBeNil)
			pong := readMessage(t, conn)
			So(pong.Type, ShouldEqual, "pong")
		})

		Convey("The client registry tracks the connection", func() {
			So(handler.ClientCount(), ShouldEqual, 1)
		})
	})

	Convey("Given a handler shutting down", t, func() {
		ingestor := &fakeIngestor{}
		handler := ws.NewHandler(ingestor)
		conn := dial(t, handler)
		_ = readMessage(t, conn) // welcome

		handler.CloseAll(context.Background())

		deadline := time.Now().Add(2 * time.Second)
		for handler.ClientCount() > 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		So(handler.ClientCount(), ShouldEqual, 0)
	})
}
