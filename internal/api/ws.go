package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sprite-ai/prgate/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 16,
	WriteBufferSize: 1024 * 16,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev; restrict in production
	},
}

// WebSocket message types from client.
const (
	wsMsgCheck = "check"
)

// WebSocket message types to client.
const (
	wsMsgLog    = "log"
	wsMsgResult = "result"
	wsMsgError  = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsLogLine is the payload for "log" messages, streamed while a run
// progresses.
type wsLogLine struct {
	Line string `json:"line"`
}

// handleWebSocket runs review checks over a WebSocket, streaming each log
// line as the evaluation produces it and finishing with the verdict.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read: %v", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			sendWSError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgCheck:
			s.handleWSCheck(conn, r, msg.Data)
		default:
			sendWSError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (s *Server) handleWSCheck(conn *websocket.Conn, r *http.Request, data json.RawMessage) {
	var req checkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid check data")
		return
	}
	if msg := req.validate(); msg != "" {
		sendWSError(conn, msg)
		return
	}
	if s.owner != "" && req.Owner != s.owner {
		sendWSError(conn, "repository owner is not allowed")
		return
	}

	logger := logging.New(nil)
	logger.OnLine(func(line string) {
		sendWSMessage(conn, wsMsgLog, wsLogLine{Line: line})
	})

	resp := s.runCheck(r, &req, logger)
	sendWSMessage(conn, wsMsgResult, resp)
}

func sendWSMessage(conn *websocket.Conn, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("ws marshal: %v", err)
		return
	}
	msg := wsMessage{Type: msgType, Data: raw}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("ws write: %v", err)
	}
}

func sendWSError(conn *websocket.Conn, errMsg string) {
	sendWSMessage(conn, wsMsgError, map[string]string{"message": errMsg})
}
