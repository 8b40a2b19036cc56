package push

import (
	"net/url"
	"strings"
)

// MaskEndpoint сокращает endpoint push-подписки для логов: хост и начало пути.
// Полный endpoint — фактически адрес устройства, в логах его не светим.
func MaskEndpoint(s string) string {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		if len(s) <= 8 {
			return "****"
		}
		return s[:8] + "***"
	}
	p := u.Path
	if len(p) > 8 {
		p = p[:8]
	}
	return u.Host + p + "***"
}
