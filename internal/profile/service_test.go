package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budtender/budtender-backend/internal/cache"
	"github.com/budtender/budtender-backend/internal/models"
)

type fakeProfileRepo struct {
	profiles map[string]*models.UserProfile
	getCalls int
	failGet  bool
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*models.UserProfile)}
}

func (r *fakeProfileRepo) Get(_ context.Context, userID string) (*models.UserProfile, error) {
	r.getCalls++
	if r.failGet {
		return nil, errors.New("db down")
	}
	return r.profiles[userID], nil
}

func (r *fakeProfileRepo) Upsert(_ context.Context, p *models.UserProfile) error {
	r.profiles[p.UserID] = p
	return nil
}

func newTestService(repo *fakeProfileRepo) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(),
		log:   logrus.WithField("component", "profile-test"),
	}
}

func TestSave_MarksOnboarded(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)

	err := svc.Save(context.Background(), &models.UserProfile{UserID: "user1", Name: "Sam"})
	require.NoError(t, err)

	assert.True(t, repo.profiles["user1"].Onboarded)

	onboarded, err := svc.IsOnboarded(context.Background(), "user1")
	require.NoError(t, err)
	assert.True(t, onboarded)
	// Answered from cache, no repo read
	assert.Zero(t, repo.getCalls)
}

func TestSave_RequiresUserID(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())

	err := svc.Save(context.Background(), &models.UserProfile{Name: "Sam"})
	assert.Error(t, err)
}

func TestIsOnboarded_CachesLookup(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)

	onboarded, err := svc.IsOnboarded(context.Background(), "user1")
	require.NoError(t, err)
	assert.False(t, onboarded)
	assert.Equal(t, 1, repo.getCalls)

	// Second check hits the cache
	_, err = svc.IsOnboarded(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)
}

func TestIsOnboarded_RepoFailure(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.failGet = true
	svc := newTestService(repo)

	_, err := svc.IsOnboarded(context.Background(), "user1")
	assert.Error(t, err)
}
