package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

const profileSearchLimit = 5

// ProfileService handles profile lookups and notifications
type ProfileService struct {
	profileRepo      ports.ProfileRepository
	notificationRepo ports.NotificationRepository
	logger           *logger.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profileRepo ports.ProfileRepository, notificationRepo ports.NotificationRepository, logger *logger.Logger) *ProfileService {
	return &ProfileService{
		profileRepo:      profileRepo,
		notificationRepo: notificationRepo,
		logger:           logger.WithComponent("profile_service"),
	}
}

// SearchProfiles finds up to five profiles whose username contains query
func (s *ProfileService) SearchProfiles(ctx context.Context, query string) ([]*entities.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*entities.Profile{}, nil
	}
	return s.profileRepo.Search(ctx, query, profileSearchLimit)
}

func (s *ProfileService) ListNotifications(ctx context.Context) ([]*entities.Notification, error) {
	return s.notificationRepo.List(ctx)
}

func (s *ProfileService) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, id)
}
