// Package notifications publishes exclusion-build and manager connectivity
// alerts to ntfy.
//
// NewService returns a no-op implementation when no topic is configured.
// Observer plugs into the operations service and only publishes on state
// transitions, so a manager that stays down produces one alert rather than
// one per scheduled sync.
package notifications
