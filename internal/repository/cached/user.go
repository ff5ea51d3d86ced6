package cached

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

// userRepository is a read-through cache over UserRepository. Reviewer and
// admin lookups happen on every adjudication, so short-lived caching keeps
// the hot path off the store. Errors are never cached.
type userRepository struct {
	inner repository.UserRepository
	cache *cache.Cache
}

func NewUserRepository(inner repository.UserRepository, ttl time.Duration) repository.UserRepository {
	return &userRepository{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	key := "user:" + id
	if v, ok := r.cache.Get(key); ok {
		return v.(*model.User), nil
	}

	user, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(key, user)
	return user, nil
}

func (r *userRepository) ListAdmins(ctx context.Context, tenantID string) ([]*model.User, error) {
	key := fmt.Sprintf("admins:%s", tenantID)
	if v, ok := r.cache.Get(key); ok {
		return v.([]*model.User), nil
	}

	admins, err := r.inner.ListAdmins(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(key, admins)
	return admins, nil
}
