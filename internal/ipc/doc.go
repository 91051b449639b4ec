// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// The socket lives beside the state database and is only reachable by local
// users with access to that directory, so unlike the HTTP API it carries no
// token. Request and response types alias the operations payloads where they
// already exist so both transports stay in step.
package ipc
