package service

import (
	"context"
	"fmt"

	"taskhub/internal/domain"
)

// IdentityService 把会话里的 email 解析成用户记录
type IdentityService struct {
	users domain.UserRepository
}

func NewIdentityService(users domain.UserRepository) *IdentityService {
	return &IdentityService{users: users}
}

// Resolve 无会话 → ErrUnauthenticated；会话有效但用户不存在 → ErrPrincipalNotFound
func (s *IdentityService) Resolve(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, &domain.Error{Kind: domain.ErrUnauthenticated, Msg: "Unauthorized"}
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}
	if u == nil {
		return nil, &domain.Error{Kind: domain.ErrPrincipalNotFound, Msg: "User not found"}
	}
	return u, nil
}
