/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package web

import (
	"net/http"

	"github.com/Comcast/gauntlet/core"

	"github.com/gorilla/websocket"
)

// SocketOptions configures a websocket bridge.
type SocketOptions struct {
	URL         string
	SubProtocol string

	// Filter, when set, drops text messages it returns false for
	// instead of signaling them.
	Filter func(message string) bool
}

// Socket connects a websocket to an engine: every (unfiltered) inbound
// message becomes a Signal, which a scenario collects with Listen.
type Socket struct {
	engine *core.Engine
	opts   SocketOptions
	conn   *websocket.Conn
	done   chan struct{}
}

// NewSocket dials and starts the read loop.
func NewSocket(e *core.Engine, opts SocketOptions) (*Socket, error) {
	dialer := websocket.Dialer{}
	if opts.SubProtocol != "" {
		dialer.Subprotocols = []string{opts.SubProtocol}
	}
	conn, _, err := dialer.Dial(opts.URL, http.Header{})
	if err != nil {
		return nil, err
	}
	s := &Socket{
		engine: e,
		opts:   opts,
		conn:   conn,
		done:   make(chan struct{}),
	}
	go s.listen()
	return s, nil
}

func (s *Socket) listen() {
	defer close(s.done)
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.engine.Logger.Debugf("websocket closed: %v", err)
			return
		}
		switch mt {
		case websocket.TextMessage:
			text := string(data)
			if s.opts.Filter != nil && !s.opts.Filter(text) {
				s.engine.Logger.Tracef("websocket message filtered out")
				continue
			}
			s.engine.Signal(text)
		case websocket.BinaryMessage:
			s.engine.Signal(data)
		}
	}
}

// Send writes a text frame.
func (s *Socket) Send(text string) error {
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// SendBytes writes a binary frame.
func (s *Socket) SendBytes(data []byte) error {
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close shuts the connection; the read loop exits on its own.
func (s *Socket) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}
