// Package resolver восстанавливает контекст уведомления по цепочке ссылок между коллекциями:
// запись истории -> задача -> проект, сообщение -> чат -> команда + отправитель.
//
// Каждый шаг зависит от результата предыдущего, поэтому шаги идут строго последовательно.
// Пустой результат на любом шаге (документа нет, он битый) — не ошибка: событие
// отбрасывается с ErrUnresolvable. Ошибка хранилища возвращается как есть, обёрнутой.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/model"
	"github.com/notifier/internal/repository"
	"github.com/notifier/internal/storage"
)

// ErrUnresolvable — цепочку ссылок не удалось пройти; уведомление не отправляется.
var ErrUnresolvable = errors.New("unresolvable reference")

// State — шаг разрешения ссылок.
type State int

const (
	AwaitingTask State = iota
	AwaitingProject
	AwaitingChat
	AwaitingTeam
	AwaitingUser
	Resolved
	Dropped
)

func (s State) String() string {
	switch s {
	case AwaitingTask:
		return "awaiting_task"
	case AwaitingProject:
		return "awaiting_project"
	case AwaitingChat:
		return "awaiting_chat"
	case AwaitingTeam:
		return "awaiting_team"
	case AwaitingUser:
		return "awaiting_user"
	case Resolved:
		return "resolved"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// HistoryContext — контекст уведомления об активности в задаче.
type HistoryContext struct {
	Entry   *model.HistoryEntry
	Task    *model.Task
	Project *model.Project
}

// MessageContext — контекст уведомления о сообщении в чате.
type MessageContext struct {
	Message *model.Message
	Chat    *model.Chat
	Team    *model.Team
	Sender  *model.User
}

type Resolver struct {
	tasks    *repository.TaskRepository
	projects *repository.ProjectRepository
	chats    *repository.ChatRepository
	teams    *repository.TeamRepository
	users    *repository.UserRepository
}

// New создаёт резолвер; timeout — на каждое обращение к хранилищу.
func New(store storage.DocumentStore, timeout time.Duration) *Resolver {
	return &Resolver{
		tasks:    repository.NewTaskRepository(store, timeout),
		projects: repository.NewProjectRepository(store, timeout),
		chats:    repository.NewChatRepository(store, timeout),
		teams:    repository.NewTeamRepository(store, timeout),
		users:    repository.NewUserRepository(store, timeout),
	}
}

// drop превращает результат шага в итоговую ошибку: "нет документа" и битый документ
// дают ErrUnresolvable, остальное — ошибка хранилища.
func drop(st State, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s: not found", ErrUnresolvable, st)
	}
	if errors.Is(err, model.ErrMalformed) {
		return fmt.Errorf("%w: %s: %w", ErrUnresolvable, st, err)
	}
	return fmt.Errorf("resolve %s: %w", st, err)
}

// History: запись истории -> задача (первая по id) -> проект (первый по id).
func (r *Resolver) History(ctx context.Context, entry *model.HistoryEntry) (*HistoryContext, error) {
	defer logger.DeferLogDuration("resolver.History", time.Now())()
	hc := &HistoryContext{Entry: entry}
	st := AwaitingTask
	for st != Resolved {
		var err error
		next := Dropped
		switch st {
		case AwaitingTask:
			hc.Task, err = r.tasks.FindByHistoryEntry(ctx, entry.ID)
			next = AwaitingProject
		case AwaitingProject:
			hc.Project, err = r.projects.FindByTask(ctx, hc.Task.ID)
			next = Resolved
		default:
			return nil, fmt.Errorf("resolver: unexpected state %s", st)
		}
		if err != nil {
			return nil, drop(st, err)
		}
		st = next
	}
	return hc, nil
}

// Message: сообщение -> чат -> команда чата -> отправитель.
func (r *Resolver) Message(ctx context.Context, msg *model.Message) (*MessageContext, error) {
	defer logger.DeferLogDuration("resolver.Message", time.Now())()
	mc := &MessageContext{Message: msg}
	st := AwaitingChat
	for st != Resolved {
		var err error
		next := Dropped
		switch st {
		case AwaitingChat:
			mc.Chat, err = r.chats.GetByID(ctx, msg.ChatID)
			next = AwaitingTeam
		case AwaitingTeam:
			mc.Team, err = r.teams.GetByID(ctx, mc.Chat.TeamID)
			next = AwaitingUser
		case AwaitingUser:
			mc.Sender, err = r.users.GetByID(ctx, msg.SenderID)
			next = Resolved
		default:
			return nil, fmt.Errorf("resolver: unexpected state %s", st)
		}
		if err != nil {
			return nil, drop(st, err)
		}
		st = next
	}
	return mc, nil
}
