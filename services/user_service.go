package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/repositories"
	"github.com/arenalink/tournament-platform/storage"
)

type UserService interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	List(ctx context.Context, actor Actor, limit, offset int) ([]*models.User, error)
	UpdateRole(ctx context.Context, actor Actor, userID int, role models.UserRole) error
	UploadAvatar(ctx context.Context, actor Actor, userID int, file io.Reader, contentType string) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader, logger *slog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *userService) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	user.PasswordHash = ""
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) List(ctx context.Context, actor Actor, limit, offset int) ([]*models.User, error) {
	if !CanAdministrate(actor.Role) {
		return nil, ErrForbiddenOperation
	}
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		u.PasswordHash = ""
		s.populateAvatarURL(u)
	}
	return users, nil
}

// UpdateRole меняет роль пользователя. Администратор не может понизить
// сам себя, чтобы не остаться без последнего администратора.
func (s *userService) UpdateRole(ctx context.Context, actor Actor, userID int, role models.UserRole) error {
	if !CanAdministrate(actor.Role) {
		return ErrForbiddenOperation
	}
	if !role.Valid() {
		return ErrValidationFailed
	}
	if actor.UserID == userID && role != models.RoleAdmin {
		return ErrForbiddenOperation
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update role for user %d: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "user role updated",
		slog.Int("user_id", userID), slog.String("role", string(role)))
	return nil
}

func (s *userService) UploadAvatar(ctx context.Context, actor Actor, userID int, file io.Reader, contentType string) (*models.User, error) {
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	if actor.UserID != userID && !CanAdministrate(actor.Role) {
		return nil, ErrForbiddenOperation
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	key := storage.ObjectKey(fmt.Sprintf("avatars/%d", userID), contentType)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if user.AvatarKey != nil && *user.AvatarKey != "" && *user.AvatarKey != key {
		if delErr := s.uploader.Delete(ctx, *user.AvatarKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous avatar",
				slog.String("key", *user.AvatarKey), slog.Any("error", delErr))
		}
	}

	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &key); err != nil {
		return nil, fmt.Errorf("failed to save avatar key: %w", err)
	}

	user.AvatarKey = &key
	user.PasswordHash = ""
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) populateAvatarURL(u *models.User) {
	if s.uploader == nil || u.AvatarKey == nil || *u.AvatarKey == "" {
		return
	}
	if url := s.uploader.GetPublicURL(*u.AvatarKey); url != "" {
		u.AvatarURL = &url
	}
}
