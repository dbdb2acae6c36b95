package logger

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// ensureInstanceID: явное значение, затем INSTANCE_ID (имя пода), иначе host-<uuid8>.
func ensureInstanceID(v string) string {
	if v != "" {
		return v
	}
	if env := os.Getenv("INSTANCE_ID"); env != "" {
		return env
	}

	hn, err := os.Hostname()
	if err != nil || hn == "" {
		hn = "presence"
	}
	return hn + "-" + uuid.NewString()[:8]
}

// commonAttr: поля, которые попадают в каждую запись. Пустая версия не пишется.
func commonAttr(cfg Config) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", cfg.InstanceID),
		slog.Int("pid", os.Getpid()),
		slog.String("go", runtime.Version()),
		slog.Time("started_at", time.Now().UTC()),
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return attrs
}
