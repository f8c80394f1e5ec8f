package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocalia/anamnesis/core"
)

var twoSpeakerMapping = core.RoleMapping{
	"SPEAKER_00": core.SpeakerRoleClinician,
	"SPEAKER_01": core.SpeakerRolePatient,
}

func newTestReconciler(t *testing.T, opts ...Option) *Reconciler {
	t.Helper()
	r, err := NewReconciler(opts...)
	require.NoError(t, err)
	return r
}

func TestReconcile_TwoSpeakers(t *testing.T) {
	r := newTestReconciler(t)

	diar := []core.DiarizationInterval{
		{StartTime: 0, EndTime: 5, SpeakerLabel: "SPEAKER_00"},
		{StartTime: 5, EndTime: 10, SpeakerLabel: "SPEAKER_01"},
	}
	trans := []core.TranscriptInterval{
		{StartTime: 0, EndTime: 4.8, Text: "Hello"},
		{StartTime: 5.1, EndTime: 9.9, Text: "I have a headache"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	require.Len(t, utterances, 2)

	assert.Equal(t, core.SpeakerRoleClinician, utterances[0].Speaker)
	assert.Equal(t, "Hello", utterances[0].Text)
	assert.False(t, utterances[0].Ext.NeedsReview)

	assert.Equal(t, core.SpeakerRolePatient, utterances[1].Speaker)
	assert.Equal(t, "I have a headache", utterances[1].Text)
	assert.False(t, utterances[1].Ext.NeedsReview)

	for _, u := range utterances {
		assert.Equal(t, "intv-001", u.InterviewId)
		assert.Equal(t, core.IngestOffline, u.Mode)
	}
}

func TestReconcile_OutputOrderedByStartTime(t *testing.T) {
	r := newTestReconciler(t)

	diar := []core.DiarizationInterval{
		{StartTime: 0, EndTime: 10, SpeakerLabel: "SPEAKER_00"},
	}
	// Deliberately unsorted input.
	trans := []core.TranscriptInterval{
		{StartTime: 6, EndTime: 8, Text: "third"},
		{StartTime: 0, EndTime: 2, Text: "first"},
		{StartTime: 3, EndTime: 5, Text: "second"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	require.Len(t, utterances, 3)
	assert.Equal(t, "first", utterances[0].Text)
	assert.Equal(t, "second", utterances[1].Text)
	assert.Equal(t, "third", utterances[2].Text)
}

func TestReconcile_NoOverlapBecomesUnknown(t *testing.T) {
	r := newTestReconciler(t)

	diar := []core.DiarizationInterval{
		{StartTime: 0, EndTime: 5, SpeakerLabel: "SPEAKER_00"},
	}
	trans := []core.TranscriptInterval{
		{StartTime: 20, EndTime: 22, Text: "completely outside"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	require.Len(t, utterances, 1)
	assert.Equal(t, core.SpeakerRoleUnknown, utterances[0].Speaker)
	assert.True(t, utterances[0].Ext.NeedsReview)
	assert.NotEmpty(t, utterances[0].Ext.ReviewReason)
}

func TestReconcile_BelowThresholdBecomesUnknown(t *testing.T) {
	r := newTestReconciler(t)

	// 1s of a 4s transcript interval overlaps: fraction 0.25 < 0.5.
	diar := []core.DiarizationInterval{
		{StartTime: 0, EndTime: 3, SpeakerLabel: "SPEAKER_00"},
	}
	trans := []core.TranscriptInterval{
		{StartTime: 2, EndTime: 6, Text: "barely touching"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	require.Len(t, utterances, 1)
	assert.Equal(t, core.SpeakerRoleUnknown, utterances[0].Speaker)
	assert.True(t, utterances[0].Ext.NeedsReview)
}

func TestReconcile_CustomThreshold(t *testing.T) {
	r := newTestReconciler(t, WithConfig(Config{
		OverlapThreshold: 0.2,
		AdjacencyEpsilon: DefaultAdjacencyEpsilon,
	}))

	diar := []core.DiarizationInterval{
		{StartTime: 0, EndTime: 3, SpeakerLabel: "SPEAKER_00"},
	}
	trans := []core.TranscriptInterval{
		{StartTime: 2, EndTime: 6, Text: "barely touching"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	assert.Equal(t, core.SpeakerRoleClinician, utterances[0].Speaker)
}

func TestReconcile_CrossTalkResolvedByOverlapFraction(t *testing.T) {
	r := newTestReconciler(t)

	// Two simultaneous speakers; SPEAKER_01 covers more of the transcript.
	diar := []core.DiarizationInterval{
		{StartTime: 0, EndTime: 4, SpeakerLabel: "SPEAKER_00"},
		{StartTime: 2, EndTime: 10, SpeakerLabel: "SPEAKER_01"},
	}
	trans := []core.TranscriptInterval{
		{StartTime: 3, EndTime: 9, Text: "talking over each other"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	assert.Equal(t, core.SpeakerRolePatient, utterances[0].Speaker)
}

func TestReconcile_TieBreaksOnEarlierStart(t *testing.T) {
	r := newTestReconciler(t)

	// Both diarization intervals fully cover the transcript: identical
	// overlap fractions, so the earlier interval wins.
	diar := []core.DiarizationInterval{
		{StartTime: 1, EndTime: 10, SpeakerLabel: "SPEAKER_01"},
		{StartTime: 0, EndTime: 10, SpeakerLabel: "SPEAKER_00"},
	}
	trans := []core.TranscriptInterval{
		{StartTime: 4, EndTime: 6, Text: "contested"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	assert.Equal(t, core.SpeakerRoleClinician, utterances[0].Speaker)
}

func TestReconcile_AdjacentTurnsNotMerged(t *testing.T) {
	r := newTestReconciler(t)

	diar := []core.DiarizationInterval{
		{StartTime: 0, EndTime: 10, SpeakerLabel: "SPEAKER_01"},
	}
	// Gap of 0.1s, below the adjacency epsilon, same speaker: still two turns.
	trans := []core.TranscriptInterval{
		{StartTime: 0, EndTime: 3, Text: "I have been feeling tired"},
		{StartTime: 3.1, EndTime: 6, Text: "and dizzy in the mornings"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	require.Len(t, utterances, 2)
	assert.Equal(t, "I have been feeling tired", utterances[0].Text)
	assert.Equal(t, "and dizzy in the mornings", utterances[1].Text)
}

func TestReconcile_UnmappedLabel(t *testing.T) {
	r := newTestReconciler(t)

	diar := []core.DiarizationInterval{
		{StartTime: 0, EndTime: 5, SpeakerLabel: "SPEAKER_07"},
	}
	trans := []core.TranscriptInterval{
		{StartTime: 0, EndTime: 5, Text: "who said this"},
	}

	utterances, err := r.Reconcile("intv-001", diar, trans, twoSpeakerMapping)
	require.NoError(t, err)
	assert.Equal(t, core.SpeakerRoleUnknown, utterances[0].Speaker)
	assert.True(t, utterances[0].Ext.NeedsReview)
	assert.Contains(t, utterances[0].Ext.ReviewReason, "SPEAKER_07")
}

func TestReconcile_MalformedInput(t *testing.T) {
	r := newTestReconciler(t)

	diar := []core.DiarizationInterval{{StartTime: 0, EndTime: 5, SpeakerLabel: "SPEAKER_00"}}
	trans := []core.TranscriptInterval{{StartTime: 0, EndTime: 5, Text: "hello"}}

	t.Run("empty interview id", func(t *testing.T) {
		_, err := r.Reconcile("", diar, trans, twoSpeakerMapping)
		assert.ErrorIs(t, err, ErrAlignment)
	})

	t.Run("empty diarization", func(t *testing.T) {
		_, err := r.Reconcile("intv-001", nil, trans, twoSpeakerMapping)
		assert.ErrorIs(t, err, ErrAlignment)
		assert.ErrorIs(t, err, ErrEmptyDiarization)
	})

	t.Run("empty transcript", func(t *testing.T) {
		_, err := r.Reconcile("intv-001", diar, nil, twoSpeakerMapping)
		assert.ErrorIs(t, err, ErrAlignment)
		assert.ErrorIs(t, err, ErrEmptyTranscript)
	})

	t.Run("inverted diarization interval", func(t *testing.T) {
		bad := []core.DiarizationInterval{{StartTime: 5, EndTime: 2, SpeakerLabel: "SPEAKER_00"}}
		_, err := r.Reconcile("intv-001", bad, trans, twoSpeakerMapping)
		assert.ErrorIs(t, err, ErrAlignment)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("zero-length transcript interval", func(t *testing.T) {
		bad := []core.TranscriptInterval{{StartTime: 2, EndTime: 2, Text: "instant"}}
		_, err := r.Reconcile("intv-001", diar, bad, twoSpeakerMapping)
		assert.ErrorIs(t, err, ErrAlignment)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})
}

func TestNewReconciler_InvalidConfig(t *testing.T) {
	_, err := NewReconciler(WithConfig(Config{OverlapThreshold: 1.5}))
	assert.Error(t, err)

	_, err = NewReconciler(WithConfig(Config{OverlapThreshold: 0.5, AdjacencyEpsilon: -1}))
	assert.Error(t, err)
}
