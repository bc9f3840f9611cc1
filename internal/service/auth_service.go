package service

import (
	"context"
	"fmt"
	"strings"

	"taskhub/internal/core/auth"
	"taskhub/internal/core/metrics"
	"taskhub/internal/domain"
	"taskhub/pkg/utils"
)

type AuthService struct {
	users domain.UserRepository
	jwter *auth.JWTer
}

func NewAuthService(users domain.UserRepository, jwter *auth.JWTer) *AuthService {
	return &AuthService{users: users, jwter: jwter}
}

// Register 邮箱重复返回校验错误（400），与并发插入撞唯一索引的结果一致
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Validation("Email and password are required")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, domain.Validation("User already exists")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, domain.Validation("Password is too long")
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if isKind(err, domain.ErrConflict) {
			return nil, domain.Validation("User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.UsersRegisteredTotal.Inc()
	return u, nil
}

// Login 校验密码并签发会话令牌；用户不存在和密码错误不区分
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.Validation("Email and password are required")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return "", nil, &domain.Error{Kind: domain.ErrInvalidCredential, Msg: "Invalid credentials"}
	}
	tok, err := s.jwter.Issue(u.ID, u.Email)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return tok, u, nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }
