package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderboardService keeps a per-test ranking of students by best band
// score. Ties break by lower time spent, then by earlier submission.
type LeaderboardService interface {
	Record(ctx context.Context, testID uint, studentID uint, band float64, timeSpent int, submittedAt time.Time) error
	Top(ctx context.Context, testID uint, limit int) ([]LeaderboardEntry, error)
	Rank(ctx context.Context, testID uint, studentID uint) (*LeaderboardEntry, error)
	Reset(ctx context.Context, testID uint) error
}

type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	StudentID   uint      `json:"student_id"`
	Band        float64   `json:"band"`
	TimeSpent   int       `json:"time_spent"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// entryMeta is the tie-break payload stored per member. The ZSET only
// carries the band; time spent and submission time live in a sibling hash.
type entryMeta struct {
	TimeSpent   int       `json:"time_spent"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type leaderboardService struct {
	client *redis.Client
	logger *slog.Logger
}

func NewLeaderboardService(client *redis.Client, logger *slog.Logger) LeaderboardService {
	return &leaderboardService{client: client, logger: logger}
}

func scoresKey(testID uint) string {
	return fmt.Sprintf("leaderboard:%d:scores", testID)
}

func metaKey(testID uint) string {
	return fmt.Sprintf("leaderboard:%d:meta", testID)
}

func memberFor(studentID uint) string {
	return strconv.FormatUint(uint64(studentID), 10)
}

// Record stores a finished attempt if it beats the student's previous best:
// higher band always wins, an equal band wins only with a lower time spent.
func (s *leaderboardService) Record(ctx context.Context, testID uint, studentID uint, band float64, timeSpent int, submittedAt time.Time) error {
	member := memberFor(studentID)

	current, err := s.client.ZScore(ctx, scoresKey(testID), member).Result()
	switch {
	case err == redis.Nil:
		// first submission for this student
	case err != nil:
		return fmt.Errorf("failed to read leaderboard score: %w", err)
	case band < current:
		return nil
	case band == current:
		meta, metaErr := s.getMeta(ctx, testID, member)
		if metaErr == nil && meta.TimeSpent <= timeSpent {
			return nil
		}
	}

	metaBytes, err := json.Marshal(entryMeta{TimeSpent: timeSpent, SubmittedAt: submittedAt})
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, scoresKey(testID), redis.Z{Score: band, Member: member})
	pipe.HSet(ctx, metaKey(testID), member, metaBytes)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update leaderboard: %w", err)
	}

	s.logger.Info("Leaderboard updated", "test_id", testID, "student_id", studentID, "band", band)
	return nil
}

func (s *leaderboardService) Top(ctx context.Context, testID uint, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	members, err := s.client.ZRevRangeWithScores(ctx, scoresKey(testID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(members))
	for _, z := range members {
		member, _ := z.Member.(string)
		studentID, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		entry := LeaderboardEntry{
			StudentID: uint(studentID),
			Band:      z.Score,
		}
		if meta, err := s.getMeta(ctx, testID, member); err == nil {
			entry.TimeSpent = meta.TimeSpent
			entry.SubmittedAt = meta.SubmittedAt
		}
		entries = append(entries, entry)
	}

	// Redis orders equal scores lexically by member, so apply the real
	// tie-break here before assigning ranks.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Band != entries[j].Band {
			return entries[i].Band > entries[j].Band
		}
		if entries[i].TimeSpent != entries[j].TimeSpent {
			return entries[i].TimeSpent < entries[j].TimeSpent
		}
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *leaderboardService) Rank(ctx context.Context, testID uint, studentID uint) (*LeaderboardEntry, error) {
	member := memberFor(studentID)

	rank, err := s.client.ZRevRank(ctx, scoresKey(testID), member).Result()
	if err == redis.Nil {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard rank: %w", err)
	}
	band, err := s.client.ZScore(ctx, scoresKey(testID), member).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard score: %w", err)
	}

	entry := &LeaderboardEntry{
		Rank:      int(rank) + 1,
		StudentID: studentID,
		Band:      band,
	}
	if meta, err := s.getMeta(ctx, testID, member); err == nil {
		entry.TimeSpent = meta.TimeSpent
		entry.SubmittedAt = meta.SubmittedAt
	}
	return entry, nil
}

func (s *leaderboardService) Reset(ctx context.Context, testID uint) error {
	if err := s.client.Del(ctx, scoresKey(testID), metaKey(testID)).Err(); err != nil {
		return fmt.Errorf("failed to reset leaderboard: %w", err)
	}
	return nil
}

func (s *leaderboardService) getMeta(ctx context.Context, testID uint, member string) (*entryMeta, error) {
	raw, err := s.client.HGet(ctx, metaKey(testID), member).Result()
	if err != nil {
		return nil, err
	}
	var meta entryMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
