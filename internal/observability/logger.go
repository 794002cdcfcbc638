package observability

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLoggerTo installs a logger writing to out. Timestamps are omitted when
// plain is set.
func InitLoggerTo(out io.Writer, app string, plain bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    plain,
	}
	ctx := zerolog.New(output).With()
	if !plain {
		ctx = ctx.Timestamp()
	}
	logger := ctx.Str("app", app).Logger()
	log.Logger = logger
	return logger
}
