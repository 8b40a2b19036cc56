package startup

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/notifier/internal/logger"
)

// NewFirebaseApp загружает учётные данные сервисного аккаунта один раз при старте.
// Файла нет — используются Application Default Credentials (GCE, эмулятор).
func NewFirebaseApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err == nil {
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
			logger.Infof("firebase: credentials from %s", credentialsFile)
		} else if projectID == "" {
			return nil, fmt.Errorf("firebase: credentials file %s: %w", credentialsFile, err)
		} else {
			logger.Infof("firebase: %s not found, using application default credentials", credentialsFile)
		}
	}
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	return app, nil
}
