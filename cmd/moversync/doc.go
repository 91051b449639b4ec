// Command moversync builds the mover exclusion file from Radarr, Sonarr, the
// cache list, and manual folders, reports mover run statistics, and runs the
// scheduling daemon with its HTTP API.
//
// Commands talk to a running daemon over its Unix socket and fall back to the
// state database when no daemon answers.
package main
