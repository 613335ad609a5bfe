package controller

import (
	"context"
	"strings"
	"time"

	"cfjudge/internal/judge/compare"
	"cfjudge/internal/judge/result"
	"cfjudge/internal/judge/service"
	"cfjudge/internal/judge/worker"
	appErr "cfjudge/pkg/errors"
	"cfjudge/pkg/utils/logger"
	"cfjudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RunRequest is the body of POST /runs.
type RunRequest struct {
	Dir         string `json:"dir" form:"dir"`
	Source      string `json:"source" form:"source"`
	TimeoutMs   int64  `json:"timeout_ms" form:"timeout_ms"`
	CompareMode string `json:"compare" form:"compare"`
}

// StreamFrame is one message on the progress stream.
type StreamFrame struct {
	Type   string               `json:"type"`
	Status *worker.StatusUpdate `json:"status,omitempty"`
	Report *result.RunReport    `json:"report,omitempty"`
	Error  *response.Response   `json:"error,omitempty"`
}

const (
	frameStatus = "status"
	frameReport = "report"
	frameError  = "error"

	writeWait = 10 * time.Second
)

// RunController handles run HTTP endpoints.
type RunController struct {
	svc      *service.Service
	upgrader websocket.Upgrader
}

// NewRunController creates a new RunController.
func NewRunController(svc *service.Service) *RunController {
	return &RunController{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Register mounts the run routes under group.
func (h *RunController) Register(group *gin.RouterGroup) {
	group.POST("/runs", h.Create)
	group.GET("/runs/stream", h.Stream)
	group.GET("/languages", h.Languages)
}

// Create judges one directory and returns the report.
func (h *RunController) Create(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	in, err := toRunInput(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.svc.Run(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// Languages returns the language table.
func (h *RunController) Languages(c *gin.Context) {
	response.Success(c, gin.H{"languages": h.svc.Languages()})
}

// Stream runs one directory and pushes progress over a WebSocket.
// Closing the socket cancels the run.
func (h *RunController) Stream(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	in, err := toRunInput(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	release, err := h.svc.Acquire(in.Dir)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer release()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		// Any read error means the peer went away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	in.Reporter = worker.StatusReporterFunc(func(_ context.Context, update worker.StatusUpdate) error {
		return writeFrame(conn, StreamFrame{Type: frameStatus, Status: &update})
	})
	report, err := h.svc.Execute(ctx, in)
	if err != nil {
		e := appErr.GetError(err)
		_ = writeFrame(conn, StreamFrame{Type: frameError, Error: &response.Response{
			Code:    e.Code,
			Message: e.Error(),
			TraceID: c.GetString("trace_id"),
		}})
	} else {
		_ = writeFrame(conn, StreamFrame{Type: frameReport, Report: &report})
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func writeFrame(conn *websocket.Conn, frame StreamFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

func toRunInput(req RunRequest) (service.RunInput, error) {
	dir := strings.TrimSpace(req.Dir)
	if dir == "" {
		return service.RunInput{}, appErr.ValidationError("dir", "required")
	}
	if req.TimeoutMs < 0 {
		return service.RunInput{}, appErr.ValidationError("timeout_ms", "must not be negative")
	}
	mode := compare.Mode("")
	if req.CompareMode != "" {
		parsed, err := compare.ParseMode(req.CompareMode)
		if err != nil {
			return service.RunInput{}, err
		}
		mode = parsed
	}
	return service.RunInput{
		Dir:         dir,
		Source:      strings.TrimSpace(req.Source),
		RunTimeout:  time.Duration(req.TimeoutMs) * time.Millisecond,
		CompareMode: mode,
	}, nil
}

