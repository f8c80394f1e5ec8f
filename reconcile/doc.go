// Package reconcile merges diarization output with transcription output into
// speaker-attributed utterances.
//
// The Reconciler assigns each transcript interval to the diarization interval
// with the greatest temporal overlap fraction, maps the winning speaker label
// to a role through an explicit RoleMapping, and falls back to the UNKNOWN
// role (flagged for review) when the best overlap is below a configurable
// threshold. Each transcript interval yields exactly one utterance; adjacent
// same-speaker intervals are kept separate to preserve turn granularity at
// transcription engine boundaries.
package reconcile
