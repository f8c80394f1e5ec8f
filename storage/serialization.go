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


package storage

import (
	"fmt"

	"github.com/vocalia/anamnesis/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalUtterance serializes an Utterance to bytes.
func MarshalUtterance(u *core.Utterance) []byte {
	buf := make([]byte, core.UtteranceMUS.Size(*u))
	core.UtteranceMUS.Marshal(*u, buf)
	return buf
}

// UnmarshalUtterance deserializes an Utterance from bytes.
func UnmarshalUtterance(data []byte) (*core.Utterance, error) {
	u, _, err := core.UtteranceMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &u, nil
}
