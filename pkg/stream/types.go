package stream

// Client->server structured commands share one channel with raw binary
// chunk payloads: text frames are JSON commands, binary frames are chunks
// for the channel's current recording.

type command struct {
	Type string `json:"type"`
}

// Command types accepted from clients.
const (
	commandStart = "start"
	commandStop  = "stop"
)

type startedMessage struct {
	Type        string `json:"type"`
	RecordingID string `json:"recordingId"`
	Filename    string `json:"filename"`
}

type chunkAckMessage struct {
	Type        string `json:"type"`
	ChunkNumber int64  `json:"chunkNumber"`
	TotalSize   int64  `json:"totalSize"`
}

type stoppedMessage struct {
	Type        string  `json:"type"`
	RecordingID string  `json:"recordingId"`
	Filename    string  `json:"filename"`
	Duration    float64 `json:"duration"`
	TotalSize   int64   `json:"totalSize"`
	ChunkCount  int64   `json:"chunkCount"`
	DownloadURL string  `json:"downloadUrl"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
