// Package render produces the binary files that exam and slides artifacts
// must carry and uploads them to the blob store.
//
// Exams are laid out as a Letter-size PDF in-process with the standard
// Helvetica fonts. Slides are written as a Markdown deck and converted to
// PPTX with pandoc. Uploads use artifact.ObjectKey, so rendering the same
// artifact again overwrites its previous file.
package render
