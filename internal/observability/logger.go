package observability

import (
	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/rs/zerolog"
)

// ComponentLogger derives a structured logger tagged with app from the
// process logger so level and output follow the logging profile.
func ComponentLogger(app string) zerolog.Logger {
	return logs.Logger().With().Str("app", app).Logger()
}
