package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	appeditor "github.com/kFady/stereo-site-1/internal/application/editor"
	domeditor "github.com/kFady/stereo-site-1/internal/domain/editor"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
	maxCommandBytes = 4 << 10
)

// streamCommand is one editor action sent over the socket.  Type selects
// which of the optional payloads applies.
type streamCommand struct {
	Type    string                  `json:"type"` // "pointer" | "tool" | "zoom" | "center" | "canvas"
	Pointer *domeditor.PointerEvent `json:"pointer,omitempty"`
	Tool    *domeditor.Tool         `json:"tool,omitempty"`
	ZoomIn  bool                    `json:"zoom_in,omitempty"`
	Width   float64                 `json:"width,omitempty"`
	Height  float64                 `json:"height,omitempty"`
}

// streamReply carries the render plan after a command, or the error that
// rejected it.  The connection stays open after command errors.
type streamReply struct {
	Plan  *domeditor.RenderPlan `json:"plan,omitempty"`
	Error *streamError          `json:"error,omitempty"`
}

type streamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StreamHandler upgrades a session to a WebSocket so pointer traffic avoids
// per-event HTTP overhead.
type StreamHandler struct {
	sessions    *appeditor.Service
	upgrader    websocket.Upgrader
	logger      logging.Logger
}

// NewStreamHandler builds the handler.  The origin check delegates to the
// CORS layer's origin list.
func NewStreamHandler(sessions *appeditor.Service, allowedOrigins []string, logger logging.Logger) *StreamHandler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return &StreamHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		logger: logger.Named("http.stream"),
	}
}

// Register mounts the stream route on the API group.
func (h *StreamHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/sessions/:id/stream", h.stream)
}

func (h *StreamHandler) stream(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	// Reject unknown sessions before upgrading.
	if _, err := h.sessions.Get(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxCommandBytes)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	done := make(chan struct{})
	go h.pingLoop(conn, done)
	defer close(done)

	for {
		var cmd streamCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("stream closed unexpectedly",
					logging.String("session_id", id), logging.Err(err))
			}
			return
		}

		plan, err := h.dispatch(c, id, &cmd)
		reply := streamReply{Plan: plan}
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeSessionNotFound) {
				// Session expired under the socket; nothing left to stream.
				return
			}
			reply = streamReply{Error: &streamError{
				Code:    string(errors.GetCode(err)),
				Message: err.Error(),
			}}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

func (h *StreamHandler) dispatch(c *gin.Context, id string, cmd *streamCommand) (*domeditor.RenderPlan, error) {
	ctx := c.Request.Context()
	switch cmd.Type {
	case "pointer":
		if cmd.Pointer == nil {
			return nil, errors.New(errors.ErrCodeValidation, "pointer command requires a pointer payload")
		}
		return h.sessions.HandlePointer(ctx, id, *cmd.Pointer)
	case "tool":
		if cmd.Tool == nil {
			return nil, errors.New(errors.ErrCodeValidation, "tool command requires a tool payload")
		}
		return h.sessions.SelectTool(ctx, id, *cmd.Tool)
	case "zoom":
		return h.sessions.Zoom(ctx, id, cmd.ZoomIn)
	case "center":
		return h.sessions.Center(ctx, id)
	case "canvas":
		if cmd.Width <= 0 || cmd.Height <= 0 {
			return nil, errors.New(errors.ErrCodeValidation, "canvas dimensions must be positive")
		}
		return h.sessions.SetCanvasSize(ctx, id, cmd.Width, cmd.Height)
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown stream command %q", cmd.Type)
	}
}

func (h *StreamHandler) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
