package ws

import (
	"time"

	"github.com/steamwatch/steamwatch/internal/tracker"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgReport   MessageType = "report"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// AppStatus is one tracked app in a snapshot payload.
type AppStatus struct {
	AppID    string         `json:"appId"`
	Status   tracker.Status `json:"status"`
	LastSeen time.Time      `json:"lastSeen"`
	Active   bool           `json:"active"`
}

// SpeedStatus mirrors the live speed sample.
type SpeedStatus struct {
	Mbps       float64   `json:"mbps"`
	LogTime    string    `json:"logTime"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type SnapshotPayload struct {
	Apps  []AppStatus  `json:"apps"`
	Speed *SpeedStatus `json:"speed,omitempty"`
}

type ReportPayload struct {
	Line      string    `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}
