// Package clients talks to the external audio-processing services that
// feed the reconciler: speaker diarization and speech transcription.
// Both services accept a multipart audio upload and answer with JSON
// segment lists.
package clients
