package model

import "time"

// HistoryEntry — запись истории задачи (смена статуса, комментарий и т.п.). Не меняется после создания.
type HistoryEntry struct {
	ID        string    `mapstructure:"-" json:"id"`
	Text      string    `mapstructure:"text" json:"text"`
	User      string    `mapstructure:"user" json:"user"`
	Timestamp time.Time `mapstructure:"timestamp" json:"timestamp"`
}

// Task ссылается на свои записи истории через History.
type Task struct {
	ID       string   `mapstructure:"-" json:"id"`
	TaskName string   `mapstructure:"taskName" json:"taskName"`
	History  []string `mapstructure:"history" json:"history"`
}

// Project ссылается на свои задачи через Tasks.
type Project struct {
	ID          string   `mapstructure:"-" json:"id"`
	ProjectName string   `mapstructure:"projectName" json:"projectName"`
	Tasks       []string `mapstructure:"tasks" json:"tasks"`
}

// DecodeHistoryEntry разбирает документ коллекции history.
func DecodeHistoryEntry(id string, data map[string]any) (*HistoryEntry, error) {
	h := &HistoryEntry{ID: id}
	if err := decode(data, h); err != nil {
		return nil, malformed("history", id, err)
	}
	return h, nil
}

// DecodeTask разбирает документ коллекции tasks.
func DecodeTask(id string, data map[string]any) (*Task, error) {
	t := &Task{ID: id}
	if err := decode(data, t); err != nil {
		return nil, malformed("tasks", id, err)
	}
	if t.TaskName == "" {
		return nil, missing("tasks", id, "taskName")
	}
	return t, nil
}

// DecodeProject разбирает документ коллекции projects.
func DecodeProject(id string, data map[string]any) (*Project, error) {
	p := &Project{ID: id}
	if err := decode(data, p); err != nil {
		return nil, malformed("projects", id, err)
	}
	if p.ProjectName == "" {
		return nil, missing("projects", id, "projectName")
	}
	return p, nil
}
