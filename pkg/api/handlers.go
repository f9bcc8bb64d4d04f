package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/capturd/capturd/internal/observability"
	"github.com/capturd/capturd/pkg/recording"
)

// handleStart creates a new recording.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	info, err := s.controller.Start()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to start recording")
		s.writeError(w, http.StatusInternalServerError, "Failed to start recording")
		return
	}

	s.writeJSON(w, http.StatusOK, startResponse{
		Success:     true,
		RecordingID: info.RecordingID,
		Filename:    info.Filename,
	})
}

// handleChunk appends one request body as one chunk.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body := http.MaxBytesReader(w, r.Body, s.options.MaxChunkSize)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Chunk exceeds %d byte limit", s.options.MaxChunkSize))
			return
		}
		s.writeError(w, http.StatusBadRequest, "Failed to read chunk body")
		return
	}

	result, err := s.controller.Append(r.Context(), id, data)
	if err != nil {
		s.writeRecordingError(w, id, err, "Failed to write chunk")
		return
	}

	observability.RecordChunkIngested("http", len(data))

	s.logger.Debug().
		Str("recordingId", id).
		Int64("chunk", result.ChunkNumber).
		Int64("size", result.ChunkSize).
		Int64("total", result.TotalSize).
		Msg("Chunk written")

	s.writeJSON(w, http.StatusOK, chunkResponse{
		Success:     true,
		ChunkNumber: result.ChunkNumber,
		ChunkSize:   result.ChunkSize,
		TotalSize:   result.TotalSize,
	})
}

// handleStop completes a recording and returns its frozen stats.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	stats, err := s.controller.Stop(r.Context(), id)
	if err != nil {
		s.writeRecordingError(w, id, err, "Failed to stop recording")
		return
	}

	s.writeJSON(w, http.StatusOK, stopResponse{
		Success:     true,
		RecordingID: stats.RecordingID,
		Filename:    stats.Filename,
		Duration:    stats.Duration,
		TotalSize:   stats.TotalSize,
		ChunkCount:  stats.ChunkCount,
		DownloadURL: stats.DownloadURL,
	})
}

// handleDownload streams a completed recording's file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	dl, err := s.controller.Open(id)
	if err != nil {
		s.writeRecordingError(w, id, err, "Failed to open recording")
		return
	}
	defer dl.File.Close()

	s.logger.Info().
		Str("recordingId", id).
		Str("filename", dl.Filename).
		Msg("Downloading recording")

	w.Header().Set("Content-Type", "video/webm")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))

	if _, err := io.Copy(w, dl.File); err != nil {
		s.logger.Error().Err(err).Str("recordingId", id).Msg("Download aborted")
	}
}

// handleDelete removes a recording and its file.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.controller.Delete(r.Context(), id); err != nil {
		s.writeRecordingError(w, id, err, "Failed to delete recording")
		return
	}

	s.writeJSON(w, http.StatusOK, deleteResponse{Success: true})
}

// handleList returns summaries of all recordings.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, listResponse{
		Success:    true,
		Recordings: s.controller.List(),
	})
}

// handleHealth reports process status and the tracked recording count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Success:          true,
		Status:           "running",
		Uptime:           time.Since(s.startTime).Seconds(),
		ActiveRecordings: s.controller.Count(),
		Timestamp:        time.Now().UnixMilli(),
	})
}

// writeRecordingError maps the controller's error taxonomy onto HTTP status
// codes: unknown id and missing file are 404, wrong lifecycle state is 400,
// anything else is an I/O failure.
func (s *Server) writeRecordingError(w http.ResponseWriter, id string, err error, fallback string) {
	switch {
	case errors.Is(err, recording.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Recording not found")
	case errors.Is(err, recording.ErrFileMissing):
		s.writeError(w, http.StatusNotFound, "Recording file not found")
	case errors.Is(err, recording.ErrInvalidState):
		s.writeError(w, http.StatusBadRequest, "Recording already completed")
	case errors.Is(err, recording.ErrNotReady):
		s.writeError(w, http.StatusBadRequest, "Recording not yet completed")
	default:
		s.logger.Error().Err(err).Str("recordingId", id).Msg(fallback)
		s.writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Success: false, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
