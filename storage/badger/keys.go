package badger

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vocalia/anamnesis/core"
)

// Key prefixes for different data types
const (
	uttRecordPrefix    = "uttrec"
	uttInterviewPrefix = "uttintv"
)

// makeUtteranceKey generates a key for an utterance by ID.
func makeUtteranceKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", uttRecordPrefix, id))
}

// makeInterviewKey generates a composite key for the interview index.
// Format: prefix:interviewId\x00startTimeBits:id
// Interview ids must not contain NUL bytes. Start time bits are written
// BigEndian so lexicographic iteration yields ascending start times
// (valid because start times are non-negative).
func makeInterviewKey(interviewId string, startTime float64, id core.ID) []byte {
	prefix := uttInterviewPrefix + ":"
	buf := make([]byte, len(prefix)+len(interviewId)+1+16)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], interviewId)
	buf[offset] = 0x00
	offset++
	binary.BigEndian.PutUint64(buf[offset:], math.Float64bits(startTime))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialInterviewKey generates the iteration prefix for one interview.
func makePartialInterviewKey(interviewId string) []byte {
	prefix := uttInterviewPrefix + ":"
	buf := make([]byte, len(prefix)+len(interviewId)+1)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], interviewId)
	buf[offset] = 0x00
	return buf
}

// interviewIdFromKey extracts the interview id from an interview index key.
// Returns false when the key is not an interview index key.
func interviewIdFromKey(key []byte) (string, bool) {
	prefix := uttInterviewPrefix + ":"
	if len(key) < len(prefix)+1+16 {
		return "", false
	}
	body := key[len(prefix) : len(key)-16]
	if len(body) < 1 || body[len(body)-1] != 0x00 {
		return "", false
	}
	return string(body[:len(body)-1]), true
}
