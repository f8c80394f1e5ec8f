package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := IDFromContent("some content")
		id2 := IDFromContent("some content")
		assert.Equal(t, id1, id2)
	})

	t.Run("distinct content distinct ids", func(t *testing.T) {
		id1 := IDFromContent("content a")
		id2 := IDFromContent("content b")
		assert.NotEqual(t, id1, id2)
	})
}

func TestUtteranceDedupKey(t *testing.T) {
	u := &Utterance{
		InterviewId: "intv-001",
		Speaker:     SpeakerRolePatient,
		StartTime:   1.5,
		EndTime:     4.25,
		Text:        "I have a headache",
	}

	t.Run("stable across text changes", func(t *testing.T) {
		other := *u
		other.Text = "corrected transcription"
		assert.Equal(t, u.DedupKey(), other.DedupKey())
	})

	t.Run("sensitive to identity fields", func(t *testing.T) {
		cases := map[string]func(*Utterance){
			"interview": func(v *Utterance) { v.InterviewId = "intv-002" },
			"speaker":   func(v *Utterance) { v.Speaker = SpeakerRoleClinician },
			"start":     func(v *Utterance) { v.StartTime = 1.6 },
			"end":       func(v *Utterance) { v.EndTime = 4.3 },
		}
		for name, mutate := range cases {
			other := *u
			mutate(&other)
			assert.NotEqual(t, u.DedupKey(), other.DedupKey(), name)
		}
	})

	t.Run("assign id idempotent", func(t *testing.T) {
		v := *u
		v.AssignId()
		first := v.Id
		v.AssignId()
		assert.Equal(t, first, v.Id)
		assert.NotZero(t, v.Id)
	})
}

func TestSpeakerRoleRoundTrip(t *testing.T) {
	for _, role := range []SpeakerRole{SpeakerRolePatient, SpeakerRoleClinician, SpeakerRoleUnknown} {
		parsed, err := ParseSpeakerRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := ParseSpeakerRole("DOCTOR")
	assert.ErrorIs(t, err, ErrInvalidSpeakerRole)
}

func TestSpeakerFilterMatches(t *testing.T) {
	assert.True(t, SpeakerFilterAll.Matches(SpeakerRolePatient))
	assert.True(t, SpeakerFilterAll.Matches(SpeakerRoleClinician))
	assert.True(t, SpeakerFilterAll.Matches(SpeakerRoleUnknown))

	assert.True(t, SpeakerFilterPatient.Matches(SpeakerRolePatient))
	assert.False(t, SpeakerFilterPatient.Matches(SpeakerRoleClinician))
	assert.False(t, SpeakerFilterPatient.Matches(SpeakerRoleUnknown))

	assert.True(t, SpeakerFilterClinician.Matches(SpeakerRoleClinician))
	assert.False(t, SpeakerFilterClinician.Matches(SpeakerRolePatient))
}

func TestParseSpeakerFilter(t *testing.T) {
	f, err := ParseSpeakerFilter("")
	require.NoError(t, err)
	assert.Equal(t, SpeakerFilterAll, f)

	f, err = ParseSpeakerFilter("patient")
	require.NoError(t, err)
	assert.Equal(t, SpeakerFilterPatient, f)

	_, err = ParseSpeakerFilter("nurse")
	assert.ErrorIs(t, err, ErrInvalidSpeakerFilter)
}

func TestParseSearchMode(t *testing.T) {
	m, err := ParseSearchMode("")
	require.NoError(t, err)
	assert.Equal(t, SearchHybrid, m)

	m, err = ParseSearchMode("semantic")
	require.NoError(t, err)
	assert.Equal(t, SearchSemantic, m)

	m, err = ParseSearchMode("LEXICAL")
	require.NoError(t, err)
	assert.Equal(t, SearchLexical, m)

	_, err = ParseSearchMode("fuzzy")
	assert.ErrorIs(t, err, ErrInvalidSearchMode)
}

func TestWriteResultMerge(t *testing.T) {
	w := &WriteResult{Inserted: 1, Updated: 2}
	w.Merge(&WriteResult{Inserted: 3, Updated: 1, Rejected: []Rejection{{Reason: ErrEmptyText}}})
	assert.Equal(t, 4, w.Inserted)
	assert.Equal(t, 3, w.Updated)
	assert.Len(t, w.Rejected, 1)

	w.Merge(nil)
	assert.Equal(t, 4, w.Inserted)
}
