package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/budtender/budtender-backend/internal/cache"
	"github.com/budtender/budtender-backend/internal/models"
	"github.com/budtender/budtender-backend/internal/repository"
)

// onboardedTTL caps how stale a cached onboarding answer may be.
// The flag flips at most once per user, so a short TTL is plenty.
const onboardedTTL = 60 * time.Second

// Service manages onboarding profiles with a read-through cache on the
// hot onboarded check
type Service struct {
	repo  repository.UserProfileRepository
	cache *cache.Cache
	log   *logrus.Entry
}

// NewService creates a new profile service
func NewService(repo repository.UserProfileRepository, c *cache.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: c,
		log:   logrus.WithField("component", "profile"),
	}
}

// Get returns the user's profile, or nil when none has been saved yet
func (s *Service) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	return s.repo.Get(ctx, userID)
}

// Save upserts the user's onboarding profile and marks them onboarded
func (s *Service) Save(ctx context.Context, p *models.UserProfile) error {
	if p.UserID == "" {
		return fmt.Errorf("missing user id")
	}

	p.Onboarded = true
	if err := s.repo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	s.cache.Set(cacheKey(p.UserID), true, onboardedTTL)
	return nil
}

// IsOnboarded reports whether the user completed onboarding. Lookups hit the
// cache first; a missing profile row means not onboarded.
func (s *Service) IsOnboarded(ctx context.Context, userID string) (bool, error) {
	if v, ok := s.cache.Get(cacheKey(userID)); ok {
		if onboarded, ok := v.(bool); ok {
			return onboarded, nil
		}
	}

	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check onboarding status: %w", err)
	}

	onboarded := p != nil && p.Onboarded
	s.cache.Set(cacheKey(userID), onboarded, onboardedTTL)
	return onboarded, nil
}

func cacheKey(userID string) string {
	return "profile:onboarded:" + userID
}
