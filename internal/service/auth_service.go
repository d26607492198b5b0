package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task_manager/internal/domain"
	"task_manager/internal/logger"
	"task_manager/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginResult struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

type AuthService struct {
	users  repository.UserStore
	hasher *PasswordHasher
	tokens *TokenManager
	now    func() time.Time

	// compared against when the email is unknown so both failure paths cost a bcrypt round
	dummyHash string
}

func NewAuthService(users repository.UserStore, hasher *PasswordHasher, tokens *TokenManager) *AuthService {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		logger.Fatal("failed to prepare password hasher", "error", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		now:       time.Now,
		dummyHash: dummy,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.PublicUser, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return domain.PublicUser{}, err
	}
	if len(in.Password) > 72 {
		return domain.PublicUser{}, invalid("password must be at most 72 bytes")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return domain.PublicUser{}, ErrDuplicateIdentity
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.PublicUser{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.PublicUser{}, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.PublicUser{}, ErrDuplicateIdentity
		}
		return domain.PublicUser{}, fmt.Errorf("create user: %w", err)
	}

	logger.WithContext(ctx).Info("user registered", "user_id", u.ID)
	return u.Public(), nil
}

// Login returns ErrInvalidCredentials for an unknown email and for a wrong
// password alike.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("Email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.hasher.Compare(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(u.ID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &LoginResult{Token: token, User: u.Public()}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (domain.PublicUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PublicUser{}, ErrNotFound
		}
		return domain.PublicUser{}, err
	}
	return u.Public(), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		return domain.TaskStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("taskpriority", func(fl validator.FieldLevel) bool {
		return domain.TaskPriority(fl.Field().String()).IsValid()
	})
	return v
}

// validateStruct turns the first validator failure into a ValidationError.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("Invalid input")
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", field)
	case "email":
		return invalid("Invalid email address")
	case "min":
		return invalid("%s must be at least %s characters", field, fe.Param())
	case "max":
		return invalid("%s must be at most %s characters", field, fe.Param())
	case "taskstatus":
		return invalid("Invalid status")
	case "taskpriority":
		return invalid("Invalid priority")
	default:
		return invalid("%s is invalid", field)
	}
}
