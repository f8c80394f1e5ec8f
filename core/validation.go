// Copyright 2026 Vocalia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
)

// ValidateUtterance validates an Utterance according to domain rules.
//
// Validation rules:
//   - InterviewId must not be empty
//   - Text must not be empty
//   - StartTime must be non-negative and EndTime > StartTime
//   - SpeakerRole must be valid (Patient, Clinician, or Unknown)
//   - Confidence, when set (>= 0), must be in [0,1]
//
// NOT validated (populated later):
//   - Vector (can be empty until the embedder runs)
//   - Id (assigned from the dedup key at upsert time)
//   - CreatedAt (stamped by the store)
func ValidateUtterance(u *Utterance) error {
	if u == nil {
		return fmt.Errorf("%w: utterance is nil", ErrInvalidUtterance)
	}

	if u.InterviewId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUtterance, ErrEmptyInterviewId)
	}

	if u.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUtterance, ErrEmptyText)
	}

	if !IsValidTimeRange(u.StartTime, u.EndTime) {
		return fmt.Errorf("%w: %w: [%g, %g]", ErrInvalidUtterance, ErrInvalidTimeRange, u.StartTime, u.EndTime)
	}

	if err := ValidateSpeakerRole(u.Speaker); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUtterance, err)
	}

	if u.Confidence >= 0 && (u.Confidence > 1 || math.IsNaN(u.Confidence)) {
		return fmt.Errorf("%w: %w: %g", ErrInvalidUtterance, ErrInvalidConfidence, u.Confidence)
	}

	return nil
}

// ValidateQuery validates a Query according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - TopK must be positive
//   - Mode and Speaker must hold valid enum values
func ValidateQuery(q *Query) error {
	if q == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}

	if q.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyText)
	}

	if q.TopK <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrInvalidTopK, q.TopK)
	}

	switch q.Mode {
	case SearchSemantic, SearchLexical, SearchHybrid:
	default:
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrInvalidSearchMode, q.Mode)
	}

	switch q.Speaker {
	case SpeakerFilterAll, SpeakerFilterPatient, SpeakerFilterClinician:
	default:
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrInvalidSpeakerFilter, q.Speaker)
	}

	return nil
}

// ValidateSpeakerRole validates that a SpeakerRole has a valid value.
func ValidateSpeakerRole(role SpeakerRole) error {
	switch role {
	case SpeakerRolePatient, SpeakerRoleClinician, SpeakerRoleUnknown:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidSpeakerRole, role)
	}
}

// IsValidTimeRange checks that start is non-negative, both ends are finite,
// and end strictly follows start.
func IsValidTimeRange(start, end float64) bool {
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return false
	}
	return start >= 0 && end > start
}
