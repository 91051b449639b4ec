package operations

import (
	"context"
	"slices"
	"strings"

	"moversync/internal/settings"
)

// UpdateSettings applies mutate to the current settings and saves the result.
func (s *Service) UpdateSettings(ctx context.Context, mutate func(*settings.Settings)) (settings.Settings, error) {
	current, err := s.settings.Get(ctx)
	if err != nil {
		return current, err
	}
	mutate(&current)
	if err := s.settings.Save(ctx, current); err != nil {
		return current, err
	}
	return s.settings.Get(ctx)
}

// AddFolders appends manual exclusion folders.
func (s *Service) AddFolders(ctx context.Context, folders ...string) (settings.Settings, error) {
	return s.UpdateSettings(ctx, func(cur *settings.Settings) {
		cur.CustomFolders = append(cur.CustomFolders, folders...)
	})
}

// RemoveFolders drops manual exclusion folders.
func (s *Service) RemoveFolders(ctx context.Context, folders ...string) (settings.Settings, error) {
	return s.UpdateSettings(ctx, func(cur *settings.Settings) {
		cur.CustomFolders = slices.DeleteFunc(cur.CustomFolders, func(f string) bool {
			return slices.Contains(folders, strings.TrimSpace(f))
		})
	})
}

// SetTagFilter replaces the tag filter of manager.
func (s *Service) SetTagFilter(ctx context.Context, manager string, ids []int) (settings.Settings, error) {
	if _, err := s.manager(manager); err != nil {
		return settings.Settings{}, err
	}
	return s.UpdateSettings(ctx, func(cur *settings.Settings) {
		if manager == ManagerSonarr {
			cur.SonarrTagIDs = ids
			return
		}
		cur.RadarrTagIDs = ids
	})
}
