package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"rentacar/internal/repository"
)

type AdminAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	CreateAdmin(ctx context.Context, email, password string) error
}

type adminAuthService struct {
	repo      *repository.AdminAuthRepository
	jwtSecret string
}

func NewAdminAuthService(repo *repository.AdminAuthRepository, jwtSecret string) AdminAuthService {
	return &adminAuthService{repo: repo, jwtSecret: jwtSecret}
}

func (s *adminAuthService) Login(ctx context.Context, email, password string) (string, error) {
	admin, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	claims := jwt.MapClaims{
		"admin_id": admin.ID,
		"email":    admin.Email,
		"exp":      time.Now().Add(time.Hour * 1).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *adminAuthService) CreateAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.New("email and password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, email, string(hash))
}
