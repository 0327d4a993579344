// Package hermes connects BlockSafe to the NATS event bus.
package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
	"github.com/MikeSquared-Agency/blocksafe/internal/fingerprint"
)

const (
	// SubjectAnalysisCompleted carries one AnalysisCompleted per finished analysis.
	SubjectAnalysisCompleted = "blocksafe.analysis.completed"
	// SubjectHoneypotTerminated carries one HoneypotTerminated per honeypot run.
	SubjectHoneypotTerminated = "blocksafe.honeypot.terminated"
	// SubjectTranscriptReady is consumed: call transcripts awaiting analysis.
	SubjectTranscriptReady = "blocksafe.transcript.ready"
	// SubjectServiceRegistered announces a server instance on startup.
	SubjectServiceRegistered = "blocksafe.service.registered"
)

// AnalysisCompleted is a compact summary of an analysis record.
type AnalysisCompleted struct {
	RequestID     string    `json:"request_id"`
	SessionID     string    `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	IsScam        bool      `json:"is_scam"`
	Confidence    float64   `json:"confidence"`
	ScamType      string    `json:"scam_type,omitempty"`
	EvidenceLevel string    `json:"evidence_level"`
	Mode          string    `json:"operation_mode"`
	EntityCount   int       `json:"entity_count"`
}

// HoneypotTerminated reports the outcome of a honeypot engagement together
// with the identifiers it collected.
type HoneypotTerminated struct {
	RequestID         string       `json:"request_id"`
	SessionID         string       `json:"session_id"`
	TurnsCompleted    int          `json:"turns_completed"`
	TerminationReason string       `json:"termination_reason"`
	Entities          entities.Set `json:"entities"`
}

// TranscriptReady is published by the speech pipeline once a call has been
// transcribed.
type TranscriptReady struct {
	SessionID  string                    `json:"session_id"`
	Transcript string                    `json:"transcript"`
	Mode       string                    `json:"mode"`
	Voice      *fingerprint.VoiceSignals `json:"voice,omitempty"`
	FollowUps  []string                  `json:"follow_ups,omitempty"`
}

type ServiceRegistered struct {
	Timestamp      time.Time `json:"timestamp"`
	Port           int       `json:"port"`
	Version        string    `json:"version"`
	OracleProvider string    `json:"oracle_provider"`
}
