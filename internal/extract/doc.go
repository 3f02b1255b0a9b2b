// Package extract pulls raw text out of ingest sources.
//
// A Registry maps each source type to an Extractor: Markdown files are read
// directly with frontmatter and inline HTML removed, PDFs go through
// pdftotext, PPTX decks are read from their slide XML, audio and video are
// transcribed with WhisperX, and YouTube links are downloaded with yt-dlp
// before transcription. Output is raw; callers normalize it.
package extract
