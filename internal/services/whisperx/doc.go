// Package whisperx wraps ffmpeg audio extraction and WhisperX transcription
// (run through uvx) for audio, video, and downloaded lecture sources.
package whisperx
