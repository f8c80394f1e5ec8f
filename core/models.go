package core

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Utterance IDs are derived from the dedup key via content-based hashing,
// which makes re-ingestion of the same source idempotent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SpeakerRole identifies who produced an utterance in a clinical interview.
type SpeakerRole int

const (
	// SpeakerRolePatient represents the patient.
	SpeakerRolePatient SpeakerRole = iota + 1
	// SpeakerRoleClinician represents the clinician.
	SpeakerRoleClinician
	// SpeakerRoleUnknown marks utterances the reconciler could not attribute.
	SpeakerRoleUnknown
)

// String returns the canonical wire name of the role.
func (r SpeakerRole) String() string {
	switch r {
	case SpeakerRolePatient:
		return "PATIENT"
	case SpeakerRoleClinician:
		return "CLINICIAN"
	case SpeakerRoleUnknown:
		return "UNKNOWN"
	default:
		return "INVALID"
	}
}

// ParseSpeakerRole converts a wire name into a SpeakerRole.
func ParseSpeakerRole(s string) (SpeakerRole, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PATIENT":
		return SpeakerRolePatient, nil
	case "CLINICIAN":
		return SpeakerRoleClinician, nil
	case "UNKNOWN":
		return SpeakerRoleUnknown, nil
	default:
		return 0, ErrInvalidSpeakerRole
	}
}

// SpeakerFilter restricts retrieval to utterances of a given role.
type SpeakerFilter int

const (
	// SpeakerFilterAll applies no role restriction.
	SpeakerFilterAll SpeakerFilter = iota
	// SpeakerFilterPatient restricts to patient utterances.
	SpeakerFilterPatient
	// SpeakerFilterClinician restricts to clinician utterances.
	SpeakerFilterClinician
)

// Matches reports whether an utterance with the given role passes the filter.
func (f SpeakerFilter) Matches(role SpeakerRole) bool {
	switch f {
	case SpeakerFilterAll:
		return true
	case SpeakerFilterPatient:
		return role == SpeakerRolePatient
	case SpeakerFilterClinician:
		return role == SpeakerRoleClinician
	default:
		return false
	}
}

// String returns the canonical wire name of the filter.
func (f SpeakerFilter) String() string {
	switch f {
	case SpeakerFilterAll:
		return "ALL"
	case SpeakerFilterPatient:
		return "PATIENT"
	case SpeakerFilterClinician:
		return "CLINICIAN"
	default:
		return "INVALID"
	}
}

// ParseSpeakerFilter converts a wire name into a SpeakerFilter.
func ParseSpeakerFilter(s string) (SpeakerFilter, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return SpeakerFilterAll, nil
	case "PATIENT":
		return SpeakerFilterPatient, nil
	case "CLINICIAN":
		return SpeakerFilterClinician, nil
	default:
		return 0, ErrInvalidSpeakerFilter
	}
}

// IngestionMode records how an utterance entered the system.
// Informational only; never affects retrieval semantics.
type IngestionMode int

const (
	// IngestOffline marks utterances from offline batch processing.
	IngestOffline IngestionMode = iota + 1
	// IngestLive marks utterances from a live streaming session.
	IngestLive
)

// String returns the canonical wire name of the mode.
func (m IngestionMode) String() string {
	switch m {
	case IngestOffline:
		return "OFFLINE"
	case IngestLive:
		return "LIVE"
	default:
		return "INVALID"
	}
}

// SearchMode selects the scoring strategy for a query.
type SearchMode int

const (
	// SearchSemantic ranks by embedding cosine similarity.
	SearchSemantic SearchMode = iota + 1
	// SearchLexical ranks by normalized term frequency.
	SearchLexical
	// SearchHybrid fuses semantic and lexical signals. Default.
	SearchHybrid
)

// String returns the canonical wire name of the mode.
func (m SearchMode) String() string {
	switch m {
	case SearchSemantic:
		return "SEMANTIC"
	case SearchLexical:
		return "LEXICAL"
	case SearchHybrid:
		return "HYBRID"
	default:
		return "INVALID"
	}
}

// ParseSearchMode converts a wire name into a SearchMode.
func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SEMANTIC":
		return SearchSemantic, nil
	case "LEXICAL":
		return SearchLexical, nil
	case "", "HYBRID":
		return SearchHybrid, nil
	default:
		return 0, ErrInvalidSearchMode
	}
}

// Extensions is the typed metadata extension point for utterances.
// Fields here are enrichment only and must never be required by core logic.
type Extensions struct {
	// Sentiment is an optional sentiment label from downstream enrichment.
	Sentiment string
	// Entities are optional named entities extracted from the text.
	Entities []string
	// NeedsReview is set by the reconciler when speaker attribution fell
	// below the overlap threshold and the utterance was marked UNKNOWN.
	NeedsReview bool
	// ReviewReason describes why the utterance was flagged.
	ReviewReason string
}

// Utterance is the atomic retrievable unit: one speaker-attributed span of
// transcribed speech within an interview.
type Utterance struct {
	Id          ID
	InterviewId string
	Speaker     SpeakerRole
	StartTime   float64 // seconds from interview start
	EndTime     float64 // seconds from interview start, > StartTime
	Text        string
	Confidence  float64 // transcription confidence in [0,1]; negative = unset
	Vector      []float32
	Mode        IngestionMode
	CreatedAt   time.Time
	Ext         Extensions
}

// DedupKey returns the identity key used for idempotent upserts.
// Two utterances with equal keys are the same logical utterance.
func (u *Utterance) DedupKey() string {
	var sb strings.Builder
	sb.WriteString(u.InterviewId)
	sb.WriteByte('|')
	sb.WriteString(u.Speaker.String())
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(u.StartTime, 'g', -1, 64))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(u.EndTime, 'g', -1, 64))
	return sb.String()
}

// AssignId populates Id from the dedup key. Idempotent.
func (u *Utterance) AssignId() {
	u.Id = IDFromContent(u.DedupKey())
}

// DiarizationInterval is a speaker-labeled time span from the diarization
// collaborator. Ephemeral reconciler input; never persisted.
type DiarizationInterval struct {
	StartTime    float64
	EndTime      float64
	SpeakerLabel string  // free-form, e.g. "SPEAKER_00"
	Confidence   float64 // negative = unset
}

// TranscriptInterval is a transcribed time span from the transcription
// collaborator. Ephemeral reconciler input; never persisted.
type TranscriptInterval struct {
	StartTime float64
	EndTime   float64
	Text      string
}

// RoleMapping maps free-form diarization labels to speaker roles.
// Labels absent from the mapping resolve to SpeakerRoleUnknown.
type RoleMapping map[string]SpeakerRole

// Query describes one retrieval request.
type Query struct {
	Text         string
	InterviewIds []string // allow-list; empty = no restriction
	Speaker      SpeakerFilter
	TopK         int
	Mode         SearchMode
	Rerank       bool
}

// RankedResult is one entry of a ranked retrieval response.
type RankedResult struct {
	Utterance *Utterance
	Score     float32
	Rank      int // 1-indexed
	Method    SearchMode
	// Degraded is set when the re-ranking stage failed and the
	// pre-rerank ordering was returned instead.
	Degraded bool
}

// RelevanceJudgment pairs a query with its ground-truth relevant utterances.
// Used only by the evaluation engine.
type RelevanceJudgment struct {
	QueryId     string
	Query       Query
	RelevantIds []ID
}

// Rejection reports one utterance refused by validation during an upsert.
type Rejection struct {
	Utterance *Utterance
	Reason    error
}

// WriteResult summarizes the outcome of an upsert batch.
// Valid items commit even when others in the same batch are rejected.
type WriteResult struct {
	Inserted int
	Updated  int
	Rejected []Rejection
}

// Merge folds another WriteResult into this one.
func (w *WriteResult) Merge(other *WriteResult) {
	if other == nil {
		return
	}
	w.Inserted += other.Inserted
	w.Updated += other.Updated
	w.Rejected = append(w.Rejected, other.Rejected...)
}
