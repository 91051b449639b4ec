// Package daemon coordinates the long-running moversync process.
//
// It wires the operations service, the cron scheduler, the mover log watcher
// and the HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances. Settings edits that arrive through the daemon re-arm
// the scheduler so new cron expressions take effect without a restart.
//
// Keep orchestration logic here: exclusion building and statistics live in
// their own packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
