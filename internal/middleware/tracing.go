package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const traceIDHeader = "X-Trace-Id"
const traceIDLocal = "trace_id"

// Tracing tags each request with a trace id: a valid incoming X-Trace-Id is kept, anything else is replaced.
// The id is echoed on the response and carried by the request logger in the user context,
// so log.Ctx(c.UserContext()) lines downstream include it.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(traceIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(traceIDLocal, id)
		c.Set(traceIDHeader, id)

		logger := log.With().Str("trace_id", id).Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	}
}

func GetTraceID(c *fiber.Ctx) string {
	id, _ := c.Locals(traceIDLocal).(string)
	return id
}
