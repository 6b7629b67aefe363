package response

import (
	"github.com/gofiber/fiber/v2"
)

// Envelope is the JSON shape of every registry response. Exactly one of Data and Error is set.
type Envelope struct {
	Status   string       `json:"status"`
	Message  string       `json:"message,omitempty"`
	Data     interface{}  `json:"data,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
	Metadata Metadata     `json:"metadata"`
}

type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details"`
}

// Metadata carries request-scoped values; Extra is merged in by handlers that need it.
type Metadata map[string]interface{}

// set by middleware.Tracing
const traceIDLocal = "trace_id"

func metadata(c *fiber.Ctx, extra Metadata) Metadata {
	m := Metadata{}
	if id, ok := c.Locals(traceIDLocal).(string); ok && id != "" {
		m["trace_id"] = id
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func write(c *fiber.Ctx, status int, env Envelope) error {
	return c.Status(status).JSON(env)
}

// Success sends 200 with data. extra may be nil.
func Success(c *fiber.Ctx, message string, data interface{}, extra Metadata) error {
	return write(c, fiber.StatusOK, Envelope{Status: "success", Message: message, Data: data, Metadata: metadata(c, extra)})
}

// SuccessCreated is Success with 201.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, extra Metadata) error {
	return write(c, fiber.StatusCreated, Envelope{Status: "success", Message: message, Data: data, Metadata: metadata(c, extra)})
}

func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = fiber.Map{}
	}
	return write(c, statusCode, Envelope{
		Status:   "error",
		Error:    &ErrorDetail{Message: message, StatusCode: statusCode, Details: details},
		Metadata: metadata(c, nil),
	})
}

// Unauthorized is the 401 sent when a route needs a principal and none was supplied.
func Unauthorized(c *fiber.Ctx) error {
	return Error(c, "principal required", fiber.StatusUnauthorized, fiber.Map{"header": "X-Principal"})
}
