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

import "errors"

// Domain validation errors
var (
	// ErrInvalidUtterance indicates an Utterance failed validation.
	ErrInvalidUtterance = errors.New("invalid utterance")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyInterviewId indicates the InterviewId field is empty.
	ErrEmptyInterviewId = errors.New("interview id cannot be empty")

	// ErrInvalidTimeRange indicates EndTime is not after StartTime,
	// or a time is negative.
	ErrInvalidTimeRange = errors.New("end time must be after start time")

	// ErrInvalidSpeakerRole indicates an invalid SpeakerRole value.
	ErrInvalidSpeakerRole = errors.New("invalid speaker role")

	// ErrInvalidConfidence indicates a confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be in [0,1]")

	// ErrInvalidQuery indicates a Query failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidTopK indicates TopK is not a positive integer.
	ErrInvalidTopK = errors.New("top k must be positive")

	// ErrInvalidSearchMode indicates an invalid SearchMode value.
	ErrInvalidSearchMode = errors.New("invalid search mode")

	// ErrInvalidSpeakerFilter indicates an invalid SpeakerFilter value.
	ErrInvalidSpeakerFilter = errors.New("invalid speaker filter")
)
