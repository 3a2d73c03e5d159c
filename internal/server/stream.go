package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/task"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventFrame is one outgoing WebSocket message.
type eventFrame struct {
	TaskID    string        `json:"task_id,omitempty"`
	ContextID string        `json:"context_id,omitempty"`
	Phase     task.Phase    `json:"phase"`
	Tool      string        `json:"tool,omitempty"`
	Content   string        `json:"content"`
	Final     bool          `json:"final"`
	Answer    *agent.Answer `json:"answer,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func frameFor(e task.Event) eventFrame {
	f := eventFrame{
		TaskID:    e.TaskID,
		ContextID: e.ContextID,
		Phase:     e.Phase,
		Tool:      e.Tool,
		Content:   e.Content,
		Final:     e.Terminal(),
		Answer:    e.Answer,
	}
	if e.Err != nil {
		f.Error = e.Err.Error()
	}
	return f
}

// handleStream reads queries from the socket one at a time and streams each
// task's events back before reading the next query.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var req agent.QueryRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			if !s.send(conn, eventFrame{Phase: task.PhaseFailed, Content: "invalid message format", Final: true, Error: "invalid message format"}) {
				return
			}
			continue
		}

		t, err := s.deps.Executor.Submit(r.Context(), req)
		if err != nil {
			if !s.send(conn, frameFor(task.Rejected(req, err))) {
				return
			}
			continue
		}

		for e := range t.Events() {
			if !s.send(conn, frameFor(e)) {
				// Keep draining so the task can finish.
				t.Wait()
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, f eventFrame) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(f); err != nil {
		s.log.Warn("websocket write failed", "error", err)
		return false
	}
	return true
}
