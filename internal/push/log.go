package push

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/notifier/internal/logger"
)

// LogProvider ничего не отправляет: пишет сообщение в лог (dry run, локальная разработка).
type LogProvider struct{}

func (LogProvider) Name() string { return "log" }

func (LogProvider) Send(_ context.Context, m *Message) (string, error) {
	raw, err := json.Marshal(m.Wire())
	if err != nil {
		return "", err
	}
	logger.Infof("push dry-run: %s", raw)
	return uuid.NewString(), nil
}
