// Package groupmembers derives membership lists from profile queries:
// users with no group, and the profiles behind a group's member ids.
package groupmembers

import (
	"context"
	"slices"

	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProfileLister is the subset of the profile store the queries need.
// ListByUIDs accepts at most profilestore.MaxInQuery ids per call.
type ProfileLister interface {
	ListUnassigned(ctx context.Context) ([]models.Profile, error)
	ListByUIDs(ctx context.Context, uids []string) ([]models.Profile, error)
}

type Service struct {
	profiles ProfileLister
	chunk    int
	log      *zap.Logger
}

// New returns a Service that fetches members chunkSize ids at a time.
// Sizes outside 1..MaxInQuery fall back to MaxInQuery.
func New(profiles ProfileLister, chunkSize int, logger *zap.Logger) *Service {
	if chunkSize <= 0 || chunkSize > profilestore.MaxInQuery {
		chunkSize = profilestore.MaxInQuery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{profiles: profiles, chunk: chunkSize, log: logger}
}

// UnassignedUsers returns every profile with no group. An empty result is
// not an error.
func (s *Service) UnassignedUsers(ctx context.Context) ([]models.Profile, error) {
	return s.profiles.ListUnassigned(ctx)
}

// MembersOf fetches the profiles for g.MemberIDs, one query per chunk,
// with chunks running concurrently. Result order is not meaningful.
// Member ids with no profile are skipped.
func (s *Service) MembersOf(ctx context.Context, g models.Group) ([]models.Profile, error) {
	ids := dedupe(g.MemberIDs)
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}

	chunks := Chunk(ids, s.chunk)
	results := make([][]models.Profile, len(chunks))

	eg, ctx := errgroup.WithContext(ctx)
	for i, part := range chunks {
		eg.Go(func() error {
			ps, err := s.profiles.ListByUIDs(ctx, part)
			if err != nil {
				return err
			}
			results[i] = ps
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		s.log.Warn("member fetch failed",
			zap.String("group_id", g.ID),
			zap.Int("chunks", len(chunks)),
			zap.Error(err),
		)
		return nil, err
	}

	out := make([]models.Profile, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, part := range results {
		for _, p := range part {
			if !seen[p.UID] {
				seen[p.UID] = true
				out = append(out, p)
			}
		}
	}
	if len(out) < len(ids) {
		s.log.Debug("member ids without profiles",
			zap.String("group_id", g.ID),
			zap.Int("missing", len(ids)-len(out)),
		)
	}
	return out, nil
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(ids)
	}
	return slices.Collect(slices.Chunk(ids, size))
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
