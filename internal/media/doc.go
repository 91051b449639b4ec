// Package media holds the library-manager domain types shared by the Radarr
// and Sonarr clients and the exclusion builder: movies, shows, episode files,
// tags, and tag filters.
package media
