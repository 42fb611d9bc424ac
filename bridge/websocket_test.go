package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/creastat/signal"
	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

func dialTestServer(t *testing.T, handler http.HandlerFunc) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	s := httptest.NewServer(handler)
	u := "ws" + strings.TrimPrefix(s.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		s.Close()
		t.Fatalf("Failed to dial: %v", err)
	}
	return conn, s
}

func TestWebSocketSource_DeliversFrames(t *testing.T) {
	conn, srv := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteMessage(websocket.TextMessage, []byte("one"))
		_ = c.WriteMessage(websocket.TextMessage, []byte("two"))
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})
	defer srv.Close()
	defer conn.Close()

	src := NewSource(SourceConfig{Conn: conn, Logger: zerolog.Nop()})

	type event struct {
		text string
		err  error
	}
	events := make(chan event, 10)
	ep := src.Subscribe(sched.Direct{}, func(r core.Result[Message]) {
		if v, err := r.Unpack(); err != nil {
			events <- event{err: err}
		} else {
			events <- event{text: string(v.Data)}
		}
	})
	defer ep.Cancel()

	timeout := time.After(3 * time.Second)
	var texts []string
	var terminal error
	for terminal == nil {
		select {
		case e := <-events:
			if e.err != nil {
				terminal = e.err
			} else {
				texts = append(texts, e.text)
			}
		case <-timeout:
			t.Fatalf("timed out; received %v so far", texts)
		}
	}

	if len(texts) != 2 || texts[0] != "one" || texts[1] != "two" {
		t.Errorf("expected [one two], got %v", texts)
	}
	if !core.Closed(terminal) {
		t.Errorf("expected graceful close after normal closure, got %v", terminal)
	}
}

func TestWebSocketSink_WritesFrames(t *testing.T) {
	serverFrames := make(chan Frame, 10)
	conn, srv := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			var f Frame
			if json.Unmarshal(data, &f) == nil {
				serverFrames <- f
			}
		}
	})
	defer srv.Close()
	defer conn.Close()

	in, s := signal.Create[string]()
	ep := NewSink(SinkConfig{Conn: conn, Logger: zerolog.Nop()}, s)
	defer ep.Cancel()

	if err := in.Send("hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	timeout := time.After(3 * time.Second)
	var frames []Frame
	for len(frames) < 2 {
		select {
		case f := <-serverFrames:
			frames = append(frames, f)
		case <-timeout:
			t.Fatalf("timed out; received %v so far", frames)
		}
	}

	if frames[0].Type != FrameValue {
		t.Errorf("expected value frame first, got %+v", frames[0])
	}
	if payload, ok := frames[0].Payload.(string); !ok || payload != "hello" {
		t.Errorf("expected payload hello, got %+v", frames[0].Payload)
	}
	if frames[1].Type != FrameClosed {
		t.Errorf("expected closed frame, got %+v", frames[1])
	}
}

func TestWebSocketSink_ErrorFrame(t *testing.T) {
	serverFrames := make(chan Frame, 10)
	conn, srv := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			var f Frame
			if json.Unmarshal(data, &f) == nil {
				serverFrames <- f
			}
		}
	})
	defer srv.Close()
	defer conn.Close()

	in, s := signal.Create[int]()
	ep := NewSink(SinkConfig{Conn: conn, Logger: zerolog.Nop()}, s)
	defer ep.Cancel()

	_ = in.Fail(errTest("stream broke"))

	select {
	case f := <-serverFrames:
		if f.Type != FrameError {
			t.Errorf("expected error frame, got %+v", f)
		}
		if f.Error != "stream broke" {
			t.Errorf("expected error text, got %q", f.Error)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for error frame")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
