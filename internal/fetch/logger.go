package fetch

import (
	"fmt"
	"log/slog"
	"strings"
)

// restyLogger adapts *slog.Logger to resty.Logger.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(l.msg(format, v...), "component", "resty")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(l.msg(format, v...), "component", "resty")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(l.msg(format, v...), "component", "resty")
}

func (restyLogger) msg(format string, v ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
