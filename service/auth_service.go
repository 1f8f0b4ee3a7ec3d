package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"calmatevibes-api/dto"
	"calmatevibes-api/models"
	"calmatevibes-api/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionTTL  = 24 * time.Hour
	RememberTTL = 30 * 24 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues the HS256 tokens accepted by middleware.AuthMiddleware.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, time.Duration, error)
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	users  repository.UserRepository
	secret []byte
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, secret []byte) AuthService {
	return &authService{users: users, secret: secret, now: time.Now}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, time.Duration, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, 0, ErrInvalidCredentials
	}
	if err != nil {
		return nil, 0, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, 0, ErrInvalidCredentials
	}

	expiration := SessionTTL
	if req.RememberMe {
		expiration = RememberTTL
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": user.ID.Hex(),
		"iat":    now.Unix(),
		"exp":    now.Add(expiration).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, 0, err
	}

	return &dto.LoginResponse{
		Token:     signed,
		ExpiresIn: int64(expiration.Seconds()),
		User:      dto.NewUserResponse(user),
	}, expiration, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, models.ErrNotFound
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

func (s *authService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Password:  string(hash),
		Username:  strings.TrimSpace(req.Username),
		Theme:     req.Theme,
		Language:  req.Language,
		CreatedAt: s.now().UTC(),
	}
	// Default preferences
	if user.Theme == "" {
		user.Theme = "light"
	}
	if user.Language == "" {
		user.Language = "es"
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// EnsureAdmin creates the bootstrap account when it is configured and
// missing. An empty email disables it.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}
	username, _, _ := strings.Cut(email, "@")
	_, err = s.CreateUser(ctx, dto.CreateUserRequest{Email: email, Password: password, Username: username})
	if errors.Is(err, models.ErrEmailTaken) {
		return nil
	}
	if err == nil {
		log.Info().Str("email", email).Msg("admin user created")
	}
	return err
}
