package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"steprecorder/internal/codegen"
	"steprecorder/internal/models"
	"steprecorder/internal/session"
	"steprecorder/pkg/chrome"
	"steprecorder/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Page is an instrumented browser tab.
type Page interface {
	session.PageController
	Done() <-chan struct{}
	Close()
}

// PageOpener opens a tab on url, emulating device when it is not empty.
type PageOpener interface {
	OpenPage(ctx context.Context, url, device string) (Page, error)
}

type PageOpenerFunc func(ctx context.Context, url, device string) (Page, error)

func (f PageOpenerFunc) OpenPage(ctx context.Context, url, device string) (Page, error) {
	return f(ctx, url, device)
}

type RecordingHandler struct {
	coord  *session.Coordinator
	opener PageOpener
	logger *zap.Logger
	now    func() time.Time
}

// NewRecordingHandler serves the recording API. opener may be nil when no
// browser is available; opening pages then fails with 503.
func NewRecordingHandler(coord *session.Coordinator, opener PageOpener, logger *zap.Logger) *RecordingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordingHandler{coord: coord, opener: opener, logger: logger.Named("api"), now: time.Now}
}

func (h *RecordingHandler) StartRecording(c *gin.Context) {
	opts := models.DefaultRecordingOptions()
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	if err := h.coord.Start(c.Request.Context(), opts); err != nil {
		if errors.Is(err, session.ErrAlreadyRecording) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("Failed to start recording", zap.Error(err))
		response.InternalServerError(c, "failed to start recording: "+err.Error())
		return
	}

	snap, err := h.coord.Snapshot(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "recording started", gin.H{
		"isRecording": snap.IsRecording,
		"options":     snap.Options,
	})
}

func (h *RecordingHandler) StopRecording(c *gin.Context) {
	if err := h.coord.Stop(c.Request.Context()); err != nil {
		if errors.Is(err, session.ErrNotRecording) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("Failed to stop recording", zap.Error(err))
		response.InternalServerError(c, "failed to stop recording: "+err.Error())
		return
	}

	screen, err := h.coord.ScreenRecording(c.Request.Context())
	if err != nil {
		h.logger.Warn("Failed to read screen recording reference", zap.Error(err))
	}
	response.SuccessWithMessage(c, "recording stopped", gin.H{
		"screenRecording": screen,
	})
}

func (h *RecordingHandler) ClearRecording(c *gin.Context) {
	if err := h.coord.Clear(c.Request.Context()); err != nil {
		response.InternalServerError(c, "failed to clear steps: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "steps cleared", nil)
}

func (h *RecordingHandler) GetRecordingStatus(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.coord.Snapshot(ctx)
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	pages, err := h.coord.Pages(ctx)
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"isRecording": snap.IsRecording,
		"options":     snap.Options,
		"stepCount":   len(snap.Steps),
		"pages":       pages,
	})
}

// GetSteps lists recorded steps. Without page_size every step is returned.
func (h *RecordingHandler) GetSteps(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	snap, err := h.coord.Snapshot(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	response.Paged(c, snap.Steps, page, pageSize)
}

func (h *RecordingHandler) GetSystemInfo(c *gin.Context) {
	info, err := h.coord.SystemInfo(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	response.Success(c, info)
}

func (h *RecordingHandler) UpdateSystemInfo(c *gin.Context) {
	var info models.SystemInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.coord.SetSystemInfo(c.Request.Context(), info); err != nil {
		response.InternalServerError(c, "failed to save system info: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "system info updated", info)
}

// DownloadScreenRecording serves the artifact of the last screen recording.
func (h *RecordingHandler) DownloadScreenRecording(c *gin.Context) {
	path, err := h.coord.ScreenRecording(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	if path == "" {
		response.NotFound(c, "no screen recording available")
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// OpenPage opens an instrumented tab on the requested URL and registers it
// with the session until the tab goes away.
func (h *RecordingHandler) OpenPage(c *gin.Context) {
	var req struct {
		URL    string `json:"url" binding:"required,url"`
		Device string `json:"device"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Device != "" {
		if _, err := chrome.LookupDevice(req.Device); err != nil {
			response.BadRequest(c, "unknown device: "+req.Device)
			return
		}
	}
	if h.opener == nil {
		response.ServiceUnavailable(c, "browser not available")
		return
	}

	p, err := h.opener.OpenPage(c.Request.Context(), req.URL, req.Device)
	if err != nil {
		h.logger.Error("Failed to open page", zap.String("url", req.URL), zap.Error(err))
		response.InternalServerError(c, "failed to open page: "+err.Error())
		return
	}
	if err := h.coord.Register(c.Request.Context(), p); err != nil {
		p.Close()
		response.InternalServerError(c, "failed to register page: "+err.Error())
		return
	}

	go func() {
		<-p.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.coord.Unregister(ctx, p.ID()); err != nil && !errors.Is(err, session.ErrClosed) {
			h.logger.Warn("Failed to unregister page", zap.String("page_id", p.ID()), zap.Error(err))
		}
	}()

	response.SuccessWithMessage(c, "page opened", gin.H{"id": p.ID(), "url": req.URL, "device": req.Device})
}

func (h *RecordingHandler) GetPages(c *gin.Context) {
	pages, err := h.coord.Pages(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, err.Error())
		return
	}
	response.Success(c, pages)
}

func (h *RecordingHandler) generate(c *gin.Context) (codegen.Output, bool) {
	ctx := c.Request.Context()
	snap, err := h.coord.Snapshot(ctx)
	if err != nil {
		response.InternalServerError(c, err.Error())
		return codegen.Output{}, false
	}
	info, err := h.coord.SystemInfo(ctx)
	if err != nil {
		response.InternalServerError(c, err.Error())
		return codegen.Output{}, false
	}
	format := codegen.Format(c.DefaultQuery("format", string(codegen.FormatManual)))
	return codegen.Generate(snap.Steps, info, format), true
}

func (h *RecordingHandler) GetCode(c *gin.Context) {
	out, ok := h.generate(c)
	if !ok {
		return
	}
	response.Success(c, out)
}

func (h *RecordingHandler) ExportCode(c *gin.Context) {
	out, ok := h.generate(c)
	if !ok {
		return
	}
	response.Attachment(c, codegen.FileName(out.Format, h.now()), []byte(out.Source))
}

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// RecordingWebSocket sends the current session, then every newly recorded
// step, until the client disconnects.
func (h *RecordingHandler) RecordingWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	snap, feed, cancel, err := h.coord.Watch(c.Request.Context(), 32)
	if err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Data: err.Error()})
		return
	}
	defer cancel()
	if err := h.write(conn, wsMessage{Type: "session", Data: snap}); err != nil {
		return
	}

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case step, ok := <-feed:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := h.write(conn, wsMessage{Type: "step", Data: step}); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *RecordingHandler) write(conn *websocket.Conn, msg wsMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}
