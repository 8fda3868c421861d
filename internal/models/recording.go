package models

import "time"

type RecordingStatus string

const (
	RecordingStatusUploaded     RecordingStatus = "uploaded"
	RecordingStatusTranscribing RecordingStatus = "transcribing"
	RecordingStatusAnalyzing    RecordingStatus = "analyzing"
	RecordingStatusReady        RecordingStatus = "ready"
	RecordingStatusFailed       RecordingStatus = "failed"
)

type Recording struct {
	ID           string
	RecordingID  string
	DeviceID     string
	StartAt      int64
	EndAt        int64
	Timezone     string
	ObjectKey    string
	Status       RecordingStatus
	ErrorCode    string
	ErrorMessage string
	RetryCount   int
	CreatedAt    time.Time
}

type TranscriptSegment struct {
	ID           string
	RecordingID  string
	SegmentIndex int
	StartMS      int
	EndMS        int
	Text         string
	ASRModel     string
	CreatedAt    time.Time
}

type Analysis struct {
	ID          string
	RecordingID string
	Version     string
	Summary     string
	People      string
	Issues      string
	Suggestions string
	CreatedAt   time.Time
}
