package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Opkumar/Book-Review-System/internal/auth"
	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/internal/repository"
	apperrors "github.com/Opkumar/Book-Review-System/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 6

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the parameters for updating a user's profile.
type UpdateProfileInput struct {
	Name   *string
	Bio    *string
	Avatar *string
}

// UserService implements accounts, authentication and profiles.
type UserService struct {
	users      repository.UserRepository
	reviews    repository.ReviewRepository
	lists      repository.ReadingListRepository
	hasher     *auth.PasswordHasher
	jwtManager *auth.JWTManager
	logger     *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	reviews repository.ReviewRepository,
	lists repository.ReadingListRepository,
	hasher *auth.PasswordHasher,
	jwtManager *auth.JWTManager,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:      users,
		reviews:    reviews,
		lists:      lists,
		hasher:     hasher,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// Register creates a reader account and returns it with an access token.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.AuthToken, error) {
	user, err := s.createUser(ctx, input, domain.RoleUser)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// RegisterAdmin creates an administrator account. There is no HTTP route
// for it; operators bootstrap admins with the seed command.
func (s *UserService) RegisterAdmin(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return s.createUser(ctx, input, domain.RoleAdmin)
}

func (s *UserService) createUser(ctx context.Context, input RegisterInput, role string) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	switch _, err := s.users.GetByEmail(ctx, email); {
	case err == nil:
		return nil, apperrors.AlreadyExists("user", "email", email)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("role", user.Role),
	)
	return user, nil
}

// Login authenticates a user with email and password.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.AuthToken, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidInput("invalid credentials")
		}
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, input.Password)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperrors.InvalidInput("invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return user, token, nil
}

// Me returns the authenticated user.
func (s *UserService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetProfile returns a user's public profile with their reading list and
// reviews.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	books, err := s.lists.ListBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reading list: %w", err)
	}

	reviews, err := s.reviews.List(ctx, domain.ReviewFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return &domain.UserProfile{User: user, ReadingList: books, Reviews: reviews}, nil
}

// UpdateProfile applies a partial update to a user's name, bio and avatar.
// Users may only update their own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID, requesterID string, input UpdateProfileInput) (*domain.User, error) {
	if userID != requesterID {
		return nil, apperrors.NotAuthorized("you can only update your own profile")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}
	if input.Avatar != nil {
		user.Avatar = *input.Avatar
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated", slog.String("user_id", user.ID))

	return user, nil
}

func (s *UserService) issueToken(user *domain.User) (*domain.AuthToken, error) {
	token, expiresAt, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &domain.AuthToken{Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
