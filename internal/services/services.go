package services

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/events"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/session"
	"github.com/ieltsprep/practice-service/internal/utils"
)

// ServiceManager wires the service layer together and owns the shared
// in-memory session manager.
type ServiceManager struct {
	tests        TestService
	attempts     AttemptService
	leaderboard  LeaderboardService
	importExport ImportExportService
	sessions     *session.Manager
	publisher    events.EventPublisher
}

func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	redisClient *redis.Client,
	publisher events.EventPublisher,
	testCacheTTL time.Duration,
	logger *slog.Logger,
	validator *utils.Validator,
) *ServiceManager {
	sessions := session.NewManager()
	leaderboard := NewLeaderboardService(redisClient, logger)
	tests := NewTestService(repo, cacheService, testCacheTTL, logger, validator)
	attempts := NewAttemptService(repo, tests, sessions, publisher, leaderboard, logger)
	importExport := NewImportExportService(repo, tests, logger)

	return &ServiceManager{
		tests:        tests,
		attempts:     attempts,
		leaderboard:  leaderboard,
		importExport: importExport,
		sessions:     sessions,
		publisher:    publisher,
	}
}

func (m *ServiceManager) Test() TestService                 { return m.tests }
func (m *ServiceManager) Attempt() AttemptService           { return m.attempts }
func (m *ServiceManager) Leaderboard() LeaderboardService   { return m.leaderboard }
func (m *ServiceManager) ImportExport() ImportExportService { return m.importExport }
func (m *ServiceManager) Sessions() *session.Manager        { return m.sessions }

// Shutdown stops all live session timers and closes the event publisher.
func (m *ServiceManager) Shutdown() {
	m.sessions.Shutdown()
	if m.publisher != nil {
		m.publisher.Close()
	}
}
