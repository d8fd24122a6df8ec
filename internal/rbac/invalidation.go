package rbac

import (
	"context"
	"fmt"
	"log/slog"
)

// InvalidateUser drops the cached permission set of one user and bumps the
// user's counter so results computed before the call are not stored back.
func (s *Service) InvalidateUser(ctx context.Context, userID int64) bool {
	key := cacheKey(userID)
	s.cache.IncrMany(ctx, []string{key}, versionOptions())
	return s.cache.Delete(ctx, key, cacheOptions())
}

// InvalidateUsers drops the cached permission sets of the given users and
// returns how many entries existed.
func (s *Service) InvalidateUsers(ctx context.Context, userIDs []int64) int {
	if len(userIDs) == 0 {
		return 0
	}
	keys := make([]string, 0, len(userIDs))
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, cacheKey(id))
	}
	s.cache.IncrMany(ctx, keys, versionOptions())
	return s.cache.DeleteMany(ctx, keys, cacheOptions())
}

// InvalidateRole drops the cached sets of every user currently holding roleID.
func (s *Service) InvalidateRole(ctx context.Context, roleID int64) (int, error) {
	ids, err := s.repo.ActiveUserIDsForRole(ctx, roleID)
	if err != nil {
		return 0, fmt.Errorf("rbac: role members: %w", err)
	}
	return s.InvalidateUsers(ctx, ids), nil
}

// InvalidateAll drops every cached permission set.
func (s *Service) InvalidateAll(ctx context.Context) int {
	removed := s.cache.DeletePattern(ctx, "*", cacheOptions())
	s.logger.Info("rbac cache purged", slog.Int("entries", removed))
	return removed
}
