// Package textutil cleans extracted text before it reaches generation and
// builds the comparison keys used when merging knowledge contexts.
//
// Normalize is applied to every extractor's output; CleanTranscript adds
// speech-specific cleanup for WhisperX transcripts. NormalizeKey folds
// concept and fact strings so deduplication ignores case and punctuation.
package textutil
