package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/model"
	"github.com/notifier/internal/storage"
)

type ChatRepository struct {
	base
}

func NewChatRepository(store storage.DocumentStore, timeout time.Duration) *ChatRepository {
	return &ChatRepository{base: newBase(store, timeout)}
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetByID", time.Now())()
	doc, err := r.get(ctx, storage.CollectionChats, id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetByID %s: %w", id, err)
	}
	return model.DecodeChat(doc.ID, doc.Data)
}

type TeamRepository struct {
	base
}

func NewTeamRepository(store storage.DocumentStore, timeout time.Duration) *TeamRepository {
	return &TeamRepository{base: newBase(store, timeout)}
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (*model.Team, error) {
	defer logger.DeferLogDuration("team.GetByID", time.Now())()
	doc, err := r.get(ctx, storage.CollectionTeams, id)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("teamRepo.GetByID %s: %w", id, err)
	}
	return model.DecodeTeam(doc.ID, doc.Data)
}
