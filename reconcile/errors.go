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


package reconcile

import "errors"

var (
	// ErrAlignment indicates reconciler input was malformed. Ingestion of
	// the affected interview is aborted; no partial output is produced.
	ErrAlignment = errors.New("alignment failed")

	// ErrEmptyDiarization indicates the diarization interval list was empty.
	ErrEmptyDiarization = errors.New("diarization interval list is empty")

	// ErrEmptyTranscript indicates the transcript interval list was empty.
	ErrEmptyTranscript = errors.New("transcript interval list is empty")

	// ErrInvalidInterval indicates an interval with end <= start or a
	// negative start.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrEmptyInterviewId indicates the interview id was missing.
	ErrEmptyInterviewId = errors.New("interview id required")
)
