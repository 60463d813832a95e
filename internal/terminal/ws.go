package terminal

import (
	"io"

	"github.com/gorilla/websocket"
)

// wsStream adapts a WebSocket connection to the raw byte stream the
// bridge relays. Each write becomes one binary message; reads drain
// messages in order. Text frames are treated the same as binary so
// simple clients work too.
type wsStream struct {
	conn *websocket.Conn
	rd   io.Reader
}

// NewWSStream wraps an upgraded WebSocket connection for use as the
// client side of a bridge relay.
func NewWSStream(conn *websocket.Conn) io.ReadWriter {
	return &wsStream{conn: conn}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.rd == nil {
			_, rd, err := s.conn.NextReader()
			if err != nil {
				return 0, io.EOF
			}
			s.rd = rd
		}
		n, err := s.rd.Read(p)
		if err == io.EOF {
			s.rd = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
