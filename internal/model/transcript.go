package model

import "gorm.io/datatypes"

// TranscriptEntry is one processed utterance. Entries are append-only and
// ordered by timestamp ascending; the concatenation of all entries for a
// teacher code is the session's cumulative transcript.
type TranscriptEntry struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TeacherCode   string         `gorm:"size:16;index" json:"teacher_code"`
	Transcription string         `json:"transcription"`
	Translation   string         `json:"translation"`
	WordTimings   datatypes.JSON `gorm:"column:word_timings" json:"word_timings,omitempty"`
	Timestamp     float64        `gorm:"column:timestamp;index" json:"timestamp"`
}

func (TranscriptEntry) TableName() string {
	return "session_transcripts"
}
