// Package logs reads the daemon log file for `studyforge logs`.
//
// Last returns the trailing lines with bounded memory; Follow polls from an
// offset and survives truncation. Both accept an optional line filter so
// callers can narrow output to one job or project.
package logs
