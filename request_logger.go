package kickoff

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// VerboseLevel is how much is logged per API request
type VerboseLevel uint16

const (
	VERBOSE_NONE = VerboseLevel(iota)
	// Method, path and status
	VERBOSE_SIMPLE
	// Plus remote address and elapsed time
	VERBOSE_ADD
	// Plus user agent
	VERBOSE_ALL
)

// NewVerboseLevelFrom parses 'v', 'vv' or 'vvv'. Anything else means no verbose output
func NewVerboseLevelFrom(str string) VerboseLevel {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "v":
		return VERBOSE_SIMPLE
	case "vv":
		return VERBOSE_ADD
	case "vvv":
		return VERBOSE_ALL
	default:
		return VERBOSE_NONE
	}
}

func requestLogger(verbose VerboseLevel) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		event := log.Info().Str("scope", SCOPE_API_SERVER).Str("event", EVENT_API_REQUEST).
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status())
		if verbose >= VERBOSE_ADD {
			event = event.Str("remote_addr", ctx.ClientIP()).Dur("elapsed", time.Since(start))
		}
		if verbose >= VERBOSE_ALL {
			event = event.Str("user_agent", ctx.Request.UserAgent())
		}
		event.Msg("Request")
	}
}
