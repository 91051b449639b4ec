// Package logs reads the moversync application log for the CLI and the HTTP
// API.
//
// Tail returns the last N lines or resumes from a byte offset, optionally
// blocking until new lines arrive so `moversync logs --follow` can poll
// cheaply. Filter narrows lines by level, component or substring and
// understands both the console and JSON log formats. Clear truncates the log
// in place so the daemon's open handle keeps writing.
package logs
