package identity

import (
	"context"
	"slices"
	"strings"

	"github.com/erp/bizdesk/internal/domain/identity"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService manages operator accounts
type UserService struct {
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo identity.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{userRepo: userRepo, logger: logger.Named("user-service")}
}

// Create adds a new user. The role defaults to staff.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Username is already taken")
	}

	role := identity.RoleStaff
	if req.Role != "" {
		role = identity.Role(req.Role)
	}
	user, err := identity.NewUser(req.Username, req.Password, role)
	if err != nil {
		return nil, err
	}
	if err := user.SetProfile(req.DisplayName, req.Email); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))

	resp := ToUserResponse(user)
	return &resp, nil
}

// List returns every user ordered by username
func (s *UserService) List(ctx context.Context) ([]UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(users, func(a, b *identity.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserResponse(u))
	}
	return out, nil
}

// Disable blocks a user from logging in. Callers cannot disable themselves.
func (s *UserService) Disable(ctx context.Context, actorID, userID uuid.UUID) (*UserResponse, error) {
	if actorID == userID {
		return nil, shared.NewDomainError("CANNOT_DISABLE_SELF", "You cannot disable your own account")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.Disable(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User disabled",
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actorID.String()))

	resp := ToUserResponse(user)
	return &resp, nil
}

// Count returns the number of users
func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}
