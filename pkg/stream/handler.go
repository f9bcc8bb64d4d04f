package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/capturd/capturd/internal/observability"
	"github.com/capturd/capturd/pkg/recording"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Handler is the streaming ingest adapter: one persistent bidirectional
// WebSocket per client, JSON commands and binary chunks interleaved on the
// same channel.
type Handler struct {
	controller *recording.Controller
	upgrader   websocket.Upgrader
	registry   *Registry
	logger     zerolog.Logger
}

// NewHandler creates the WebSocket handler.
func NewHandler(controller *recording.Controller, logger zerolog.Logger) (*Handler, error) {
	if controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	observability.EnsureRegistered()

	return &Handler{
		controller: controller,
		registry:   NewRegistry(),
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // extension connects from its own origin
			},
		},
	}, nil
}

// Registry exposes the connection registry for shutdown and health.
func (h *Handler) Registry() *Registry {
	return h.registry
}

// ServeHTTP upgrades the connection and runs its read loop to completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	conn := &Conn{
		ID:          clientID,
		WS:          ws,
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	h.registry.Add(conn)
	observability.SetStreamClients(h.registry.Count())

	h.logger.Info().
		Str("clientId", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Streaming client connected")

	h.readLoop(conn)
}

// readLoop consumes frames until the connection ends, then tears the
// connection down. A connection that dies with a recording still active
// gets that recording force-completed so no file handle leaks.
func (h *Handler) readLoop(conn *Conn) {
	defer func() {
		conn.WS.Close()
		h.registry.Remove(conn.ID)
		observability.SetStreamClients(h.registry.Count())

		if conn.activeID != "" {
			observability.RecordAbnormalClose()
			h.logger.Warn().
				Str("clientId", conn.ID).
				Str("recordingId", conn.activeID).
				Msg("Client disconnected mid-recording, force-closing")
			h.controller.Abort(conn.activeID)
		}

		h.logger.Info().Str("clientId", conn.ID).Msg("Streaming client disconnected")
	}()

	for {
		msgType, data, err := conn.WS.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Error().Err(err).Str("clientId", conn.ID).Msg("WebSocket error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			h.handleChunk(conn, data)
		case websocket.TextMessage:
			h.handleCommand(conn, data)
		}
	}
}

// handleChunk appends one binary frame to the channel's current recording.
func (h *Handler) handleChunk(conn *Conn, data []byte) {
	if conn.activeID == "" {
		h.sendError(conn, "No active recording")
		return
	}

	result, err := h.controller.Append(context.Background(), conn.activeID, data)
	if err != nil {
		// The recording can disappear or complete underneath the channel
		// via the HTTP adapter; stop tracking it here either way.
		if errors.Is(err, recording.ErrNotFound) {
			conn.activeID = ""
			h.sendError(conn, "Recording not found")
			return
		}
		if errors.Is(err, recording.ErrInvalidState) {
			conn.activeID = ""
			h.sendError(conn, "Recording already completed")
			return
		}
		h.logger.Error().Err(err).Str("recordingId", conn.activeID).Msg("Failed to write chunk")
		h.sendError(conn, "Failed to write chunk")
		return
	}

	observability.RecordChunkIngested("stream", len(data))

	h.send(conn, chunkAckMessage{
		Type:        "chunk_ack",
		ChunkNumber: result.ChunkNumber,
		TotalSize:   result.TotalSize,
	})

	if result.ChunkNumber%10 == 0 {
		h.logger.Info().
			Str("recordingId", conn.activeID).
			Int64("chunks", result.ChunkNumber).
			Int64("totalSize", result.TotalSize).
			Msg("Streaming ingest progress")
	}
}

// handleCommand dispatches one JSON command frame. A malformed or unknown
// command resets nothing but this dispatch: the channel stays usable.
func (h *Handler) handleCommand(conn *Conn, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		observability.RecordProtocolError()
		h.sendError(conn, "Invalid command")
		return
	}

	switch cmd.Type {
	case commandStart:
		h.handleStart(conn)
	case commandStop:
		h.handleStop(conn)
	default:
		observability.RecordProtocolError()
		h.sendError(conn, "Unknown command")
	}
}

// handleStart begins a new recording on this channel. A channel feeds at
// most one recording at a time, so a second start is rejected instead of
// silently replacing the first.
func (h *Handler) handleStart(conn *Conn) {
	if conn.activeID != "" {
		observability.RecordProtocolError()
		h.sendError(conn, "Recording already in progress on this connection")
		return
	}

	info, err := h.controller.Start()
	if err != nil {
		h.logger.Error().Err(err).Str("clientId", conn.ID).Msg("Failed to start recording")
		h.sendError(conn, "Failed to start recording")
		return
	}

	conn.activeID = info.RecordingID

	h.logger.Info().
		Str("clientId", conn.ID).
		Str("recordingId", info.RecordingID).
		Msg("Recording started via stream")

	h.send(conn, startedMessage{
		Type:        "started",
		RecordingID: info.RecordingID,
		Filename:    info.Filename,
	})
}

// handleStop completes the channel's current recording and reports its
// frozen stats.
func (h *Handler) handleStop(conn *Conn) {
	if conn.activeID == "" {
		observability.RecordProtocolError()
		h.sendError(conn, "No active recording")
		return
	}

	stats, err := h.controller.Stop(context.Background(), conn.activeID)
	if err != nil {
		if errors.Is(err, recording.ErrNotFound) || errors.Is(err, recording.ErrInvalidState) {
			// The recording is gone or already final either way; stop
			// tracking it on this channel.
			conn.activeID = ""
		}
		h.sendError(conn, err.Error())
		return
	}

	conn.activeID = ""

	h.send(conn, stoppedMessage{
		Type:        "stopped",
		RecordingID: stats.RecordingID,
		Filename:    stats.Filename,
		Duration:    stats.Duration,
		TotalSize:   stats.TotalSize,
		ChunkCount:  stats.ChunkCount,
		DownloadURL: stats.DownloadURL,
	})
}

func (h *Handler) sendError(conn *Conn, message string) {
	h.send(conn, errorMessage{Type: "error", Message: message})
}

func (h *Handler) send(conn *Conn, msg interface{}) {
	if err := conn.WS.WriteJSON(msg); err != nil {
		h.logger.Error().
			Err(err).
			Str("clientId", conn.ID).
			Msg("Failed to send message")
	}
}
