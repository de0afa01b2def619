package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ashlock/gatekit/internal/protocol"
)

// newTestServer starts a websocket echo-ish server: it sends a handshake
// frame first (matching the gateway's real hello banner), then streams
// each frame from toClient and records everything it receives.
func newTestServer(t *testing.T, toClient []string) (*httptest.Server, *[]string) {
	t.Helper()
	var received []string

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"banner"}`))
		for _, frame := range toClient {
			conn.WriteMessage(websocket.TextMessage, []byte(frame))
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received = append(received, string(data))
		}
	}))
	return srv, &received
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestConnectDiscardsHandshakeFrame(t *testing.T) {
	srv, _ := newTestServer(t, []string{`{"post_type":"meta_event","meta_event_type":"heartbeat"}`})
	defer srv.Close()

	gw, err := Connect(context.Background(), Config{URL: wsURL(srv.URL)}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer gw.Close()

	eventQ := make(chan *protocol.Event, 4)
	priorEventQ := make(chan *protocol.Event, 4)
	responseQ := make(chan *protocol.Event, 4)
	actionQ := make(chan *protocol.Action)
	priorActionQ := make(chan *protocol.Action)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go gw.Run(ctx, nil, Queues{
		EventQ: eventQ, PriorEventQ: priorEventQ, ResponseQ: responseQ,
		ActionQ: actionQ, PriorActionQ: priorActionQ,
	})

	select {
	case e := <-eventQ:
		if e.Kind != protocol.KindMeta {
			t.Errorf("got event kind %v, want meta", e.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decoded event; handshake frame may not have been discarded")
	}
}

func TestRunClassifiesPriorityEvents(t *testing.T) {
	srv, _ := newTestServer(t, []string{`{"post_type":"message","message_type":"private","raw_message":"hi"}`})
	defer srv.Close()

	gw, err := Connect(context.Background(), Config{URL: wsURL(srv.URL)}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer gw.Close()

	eventQ := make(chan *protocol.Event, 4)
	priorEventQ := make(chan *protocol.Event, 4)
	responseQ := make(chan *protocol.Event, 4)
	actionQ := make(chan *protocol.Action)
	priorActionQ := make(chan *protocol.Action)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	alwaysPriority := func(*protocol.Event) bool { return true }
	go gw.Run(ctx, alwaysPriority, Queues{
		EventQ: eventQ, PriorEventQ: priorEventQ, ResponseQ: responseQ,
		ActionQ: actionQ, PriorActionQ: priorActionQ,
	})

	select {
	case <-priorEventQ:
	case <-time.After(time.Second):
		t.Fatal("event never reached the priority queue")
	}
	select {
	case e := <-eventQ:
		t.Errorf("unexpected event on normal queue: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOutboundActionsAreSent(t *testing.T) {
	srv, received := newTestServer(t, nil)
	defer srv.Close()

	gw, err := Connect(context.Background(), Config{URL: wsURL(srv.URL)}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer gw.Close()

	eventQ := make(chan *protocol.Event, 4)
	priorEventQ := make(chan *protocol.Event, 4)
	responseQ := make(chan *protocol.Event, 4)
	actionQ := make(chan *protocol.Action, 4)
	priorActionQ := make(chan *protocol.Action, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go gw.Run(ctx, nil, Queues{
		EventQ: eventQ, PriorEventQ: priorEventQ, ResponseQ: responseQ,
		ActionQ: actionQ, PriorActionQ: priorActionQ,
	})

	actionQ <- protocol.SendMsg([]protocol.Segment{protocol.Text("hi")}, true, 1, 0, nil)

	time.Sleep(200 * time.Millisecond)
	if len(*received) == 0 {
		t.Fatal("server never received the outbound action")
	}
}

func TestEmptyFrameIsSkipped(t *testing.T) {
	srv, _ := newTestServer(t, []string{"", `{"post_type":"message","message_type":"private","raw_message":"after empty"}`})
	defer srv.Close()

	gw, err := Connect(context.Background(), Config{URL: wsURL(srv.URL)}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer gw.Close()

	eventQ := make(chan *protocol.Event, 4)
	priorEventQ := make(chan *protocol.Event, 4)
	responseQ := make(chan *protocol.Event, 4)
	actionQ := make(chan *protocol.Action)
	priorActionQ := make(chan *protocol.Action)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go gw.Run(ctx, nil, Queues{
		EventQ: eventQ, PriorEventQ: priorEventQ, ResponseQ: responseQ,
		ActionQ: actionQ, PriorActionQ: priorActionQ,
	})

	select {
	case e := <-eventQ:
		if e.Message == nil || e.Message.Text != "after empty" {
			t.Errorf("got unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the event after the empty frame")
	}
}
