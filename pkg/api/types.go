package api

import "github.com/capturd/capturd/pkg/recording"

// Response envelopes follow the backend's wire format: every JSON body
// carries a success flag, errors carry a human-readable message.

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type startResponse struct {
	Success     bool   `json:"success"`
	RecordingID string `json:"recordingId"`
	Filename    string `json:"filename"`
}

type chunkResponse struct {
	Success     bool  `json:"success"`
	ChunkNumber int64 `json:"chunkNumber"`
	ChunkSize   int64 `json:"chunkSize"`
	TotalSize   int64 `json:"totalSize"`
}

type stopResponse struct {
	Success     bool    `json:"success"`
	RecordingID string  `json:"recordingId"`
	Filename    string  `json:"filename"`
	Duration    float64 `json:"duration"`
	TotalSize   int64   `json:"totalSize"`
	ChunkCount  int64   `json:"chunkCount"`
	DownloadURL string  `json:"downloadUrl"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

type listResponse struct {
	Success    bool                `json:"success"`
	Recordings []recording.Summary `json:"recordings"`
}

type healthResponse struct {
	Success          bool    `json:"success"`
	Status           string  `json:"status"`
	Uptime           float64 `json:"uptime"`
	ActiveRecordings int     `json:"activeRecordings"`
	Timestamp        int64   `json:"timestamp"`
}
