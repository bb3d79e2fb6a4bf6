package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

type AuthService struct {
	db       *gorm.DB
	sessions *SessionStore
	log      logrus.FieldLogger
}

func NewAuthService(db *gorm.DB, sessions *SessionStore, log logrus.FieldLogger) *AuthService {
	return &AuthService{db: db, sessions: sessions, log: utils.LoggerOrDefault(log)}
}

func validRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleCashier, models.RoleKitchen:
		return true
	}
	return false
}

func (s *AuthService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationError("name", "name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, validationError("email", "email is invalid")
	}
	if len(in.Password) < 8 {
		return nil, validationError("password", "password must be at least 8 characters")
	}
	if !validRole(in.Role) {
		return nil, validationError("role", "role must be admin, cashier or kitchen")
	}

	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&taken).Error; err != nil {
		return nil, classifyDBError(err)
	}
	if taken > 0 {
		return nil, conflictError("email is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{Name: strings.TrimSpace(in.Name), Email: in.Email, Password: string(hashed), Role: in.Role}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, classifyDBError(err)
	}

	s.log.WithFields(logrus.Fields{"email": user.Email, "role": user.Role}).Info("User registered")
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, classifyDBError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"email": user.Email, "role": user.Role}).Info("Login successful")
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

// Authenticate resolves a bearer token into the caller's profile.
func (s *AuthService) Authenticate(token string) (*utils.CustomClaims, error) {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if s.sessions.IsRevoked(claims.ID) {
		return nil, errors.New("session has been signed out")
	}
	return claims, nil
}

// SignOut revokes the token for the rest of its lifetime.
func (s *AuthService) SignOut(claims *utils.CustomClaims) {
	exp := time.Now()
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	s.sessions.Revoke(claims.ID, exp)
}

func (s *AuthService) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("user", id)
		}
		return nil, classifyDBError(err)
	}
	return &user, nil
}

// SeedAdmin creates the first admin account when no admin exists yet.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var admins int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return classifyDBError(err)
	}
	if admins > 0 {
		return nil
	}
	_, err := s.CreateUser(ctx, NewUser{Name: "Administrator", Email: email, Password: password, Role: models.RoleAdmin})
	return err
}
