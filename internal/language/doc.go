// Package language resolves user-supplied transcription languages to the
// two-letter codes WhisperX expects.
package language
