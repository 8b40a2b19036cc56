package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/model"
	"github.com/notifier/internal/storage"
)

type TaskRepository struct {
	base
}

func NewTaskRepository(store storage.DocumentStore, timeout time.Duration) *TaskRepository {
	return &TaskRepository{base: newBase(store, timeout)}
}

// FindByHistoryEntry возвращает задачу, в чьей истории есть запись historyID.
func (r *TaskRepository) FindByHistoryEntry(ctx context.Context, historyID string) (*model.Task, error) {
	defer logger.DeferLogDuration("task.FindByHistoryEntry", time.Now())()
	doc, err := r.findOwner(ctx, storage.CollectionTasks, "history", historyID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.FindByHistoryEntry %s: %w", historyID, err)
	}
	return model.DecodeTask(doc.ID, doc.Data)
}

type ProjectRepository struct {
	base
}

func NewProjectRepository(store storage.DocumentStore, timeout time.Duration) *ProjectRepository {
	return &ProjectRepository{base: newBase(store, timeout)}
}

// FindByTask возвращает проект, в который входит задача taskID.
func (r *ProjectRepository) FindByTask(ctx context.Context, taskID string) (*model.Project, error) {
	defer logger.DeferLogDuration("project.FindByTask", time.Now())()
	doc, err := r.findOwner(ctx, storage.CollectionProjects, "tasks", taskID)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("projectRepo.FindByTask %s: %w", taskID, err)
	}
	return model.DecodeProject(doc.ID, doc.Data)
}
