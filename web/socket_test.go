package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/gauntlet/core"

	"github.com/gorilla/websocket"
)

func newEchoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSocketSignalsInboundText(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	e := core.NewEngine(nil)
	s, err := NewSocket(e, SocketOptions{URL: wsURL(server)})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got := e.Listen(time.Second, func() {
		if err := s.Send("hello"); err != nil {
			t.Error(err)
		}
	})
	if got != "hello" {
		t.Fatalf("got %#v", got)
	}
}

func TestSocketSignalsInboundBinary(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	e := core.NewEngine(nil)
	s, err := NewSocket(e, SocketOptions{URL: wsURL(server)})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got := e.Listen(time.Second, func() {
		if err := s.SendBytes([]byte{1, 2, 3}); err != nil {
			t.Error(err)
		}
	})
	data, is := got.([]byte)
	if !is || len(data) != 3 || data[0] != 1 {
		t.Fatalf("got %#v", got)
	}
}

func TestSocketFilter(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	e := core.NewEngine(nil)
	s, err := NewSocket(e, SocketOptions{
		URL: wsURL(server),
		Filter: func(message string) bool {
			return strings.HasPrefix(message, "keep:")
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got := e.Listen(time.Second, func() {
		if err := s.Send("drop: noise"); err != nil {
			t.Error(err)
		}
		if err := s.Send("keep: signal"); err != nil {
			t.Error(err)
		}
	})
	if got != "keep: signal" {
		t.Fatalf("got %#v", got)
	}
}

func TestSocketDialFailure(t *testing.T) {
	e := core.NewEngine(nil)
	if _, err := NewSocket(e, SocketOptions{URL: "ws://127.0.0.1:1/nope"}); err == nil {
		t.Fatal("expected an error")
	}
}
