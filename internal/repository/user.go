package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/model"
	"github.com/notifier/internal/storage"
)

type UserRepository struct {
	base
}

func NewUserRepository(store storage.DocumentStore, timeout time.Duration) *UserRepository {
	return &UserRepository{base: newBase(store, timeout)}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	doc, err := r.get(ctx, storage.CollectionUsers, id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByID %s: %w", id, err)
	}
	return model.DecodeUser(doc.ID, doc.Data)
}
