// Package config loads, normalizes, and validates moversync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours
// environment fallbacks such as RADARR_API_KEY and SONARR_API_KEY. The Config
// type centralizes every knob the daemon and CLI need: exclusion file
// locations, the path rewrite table, manager credentials and tag filters,
// cron schedules, and mover log naming.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
