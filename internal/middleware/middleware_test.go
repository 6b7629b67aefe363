package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTracing(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_, perr := uuid.Parse(string(body))
	assert.NoError(t, perr)
	assert.Equal(t, string(body), resp.Header.Get("X-Trace-Id"))

	incoming := uuid.New().String()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", incoming)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, incoming, resp.Header.Get("X-Trace-Id"))
}

func TestPrincipalAndRequireAuth(t *testing.T) {
	app := fiber.New()
	app.Use(Principal())
	app.Get("/open", func(c *fiber.Ctx) error { return c.SendString(GetPrincipal(c)) })
	app.Get("/closed", RequireAuth(), func(c *fiber.Ctx) error { return c.SendString(GetPrincipal(c)) })

	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/closed", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/closed", nil)
	req.Header.Set(PrincipalHeader, "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", string(body))

	req = httptest.NewRequest("GET", "/open", nil)
	req.Header.Set(PrincipalHeader, "bad principal!")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRequireAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k3y"), bcrypt.MinCost)
	require.NoError(t, err)
	app := fiber.New()
	app.Post("/op", RequireAdminKey(string(hash)), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Post("/disabled", RequireAdminKey(""), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for key, want := range map[string]int{"": fiber.StatusForbidden, "nope": fiber.StatusForbidden, "k3y": fiber.StatusNoContent} {
		req := httptest.NewRequest("POST", "/op", nil)
		if key != "" {
			req.Header.Set(AdminKeyHeader, key)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "key %q", key)
	}

	req := httptest.NewRequest("POST", "/disabled", nil)
	req.Header.Set(AdminKeyHeader, "k3y")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(Tracing())
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("boom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/plain", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Internal Server Error")
}

func TestStatusOf(t *testing.T) {
	app := fiber.New()
	var got []int
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		got = append(got, statusOf(c, err))
		return err
	})
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) })
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })

	for _, path := range []string{"/ok", "/teapot", "/boom"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}
	assert.Equal(t, []int{fiber.StatusAccepted, fiber.StatusTeapot, fiber.StatusInternalServerError}, got)
}

func TestTracing_TagsContextLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error {
		log.Ctx(c.UserContext()).Info().Msg("handled")
		return c.SendStatus(fiber.StatusNoContent)
	})

	incoming := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", incoming)
	_, err := app.Test(req)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "handled", entry["message"])
	assert.Equal(t, incoming, entry["trace_id"])
}
