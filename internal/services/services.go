package services

import (
	"github.com/jmoiron/sqlx"

	"github.com/budtender/budtender-backend/internal/assistant"
	"github.com/budtender/budtender-backend/internal/auth"
	"github.com/budtender/budtender-backend/internal/cache"
	"github.com/budtender/budtender-backend/internal/chat"
	"github.com/budtender/budtender-backend/internal/config"
	"github.com/budtender/budtender-backend/internal/profile"
	"github.com/budtender/budtender-backend/internal/registry"
	"github.com/budtender/budtender-backend/internal/repository"
	"github.com/budtender/budtender-backend/internal/repository/postgres"
	"github.com/budtender/budtender-backend/internal/websearch"
)

// Services holds all service instances
type Services struct {
	Config    *config.Config
	Assistant assistant.Client
	Registry  *registry.Service
	Chat      *chat.Assembler
	Searcher  *websearch.Searcher
	Profile   *profile.Service
	Auth      *auth.Service

	ChatHistory repository.ChatHistoryRepository
	Users       repository.UserRepository
	Profiles    repository.UserProfileRepository
}

// NewServices creates and wires all services
func NewServices(cfg *config.Config, db *sqlx.DB, jwtSecret string) (*Services, error) {
	client, err := assistant.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		return nil, err
	}

	chatHistoryRepo := postgres.NewChatHistoryRepository(db)
	userRepo := postgres.NewUserRepository(db)
	profileRepo := postgres.NewUserProfileRepository(db)

	registrySvc := registry.NewService(chatHistoryRepo, client)
	searcher := websearch.NewSearcher(cfg.Tavily)

	return &Services{
		Config:    cfg,
		Assistant: client,
		Registry:  registrySvc,
		Chat:      chat.NewAssembler(client, searcher, registrySvc),
		Searcher:  searcher,
		Profile:   profile.NewService(profileRepo, cache.New()),
		Auth:      auth.NewService(userRepo, jwtSecret),

		ChatHistory: chatHistoryRepo,
		Users:       userRepo,
		Profiles:    profileRepo,
	}, nil
}
