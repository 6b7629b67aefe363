package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis keys for request statistics, read back by the health collector.
const (
	KeyReqTotal  = "health:registry:req_total"
	KeyReqErrors = "health:registry:req_errors"
	KeyResTime   = "health:registry:res_time_total"
	KeyResCount  = "health:registry:res_count"
	KeyStartTime = "health:registry:start_time"
	KeyLastReq   = "health:registry:last_request"
	KeyErrorLog  = "health:registry:error_log"
)

// StatsKeys lists every key HealthMarker writes.
var StatsKeys = []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}

const errorLogSize = 50

// HealthMarker records request stats in Redis (skips /health*). A nil client disables it.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if rdb == nil || strings.HasPrefix(path, "/health") || path == "/reset" {
			return c.Next()
		}

		start := time.Now()
		lastReq, _ := json.Marshal(map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		})

		err := c.Next()

		status := c.Response().StatusCode()
		ms := time.Since(start).Milliseconds()
		ctx := context.Background()
		_, perr := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, KeyLastReq, lastReq, 0)
			pipe.Incr(ctx, KeyReqTotal)
			pipe.Incr(ctx, KeyResCount)
			pipe.IncrByFloat(ctx, KeyResTime, float64(ms))
			if status >= fiber.StatusInternalServerError {
				pipe.Incr(ctx, KeyReqErrors)
				entry, _ := json.Marshal(map[string]interface{}{
					"time":     start,
					"method":   c.Method(),
					"path":     path,
					"status":   status,
					"trace_id": GetTraceID(c),
				})
				pipe.LPush(ctx, KeyErrorLog, entry)
				pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
			}
			return nil
		})
		if perr != nil {
			log.Warn().Err(perr).Msg("record request stats")
		}
		return err
	}
}
