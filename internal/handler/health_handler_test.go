package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go-pen-inventory/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestPing(t *testing.T) {
	db := testutil.NewDB(t)

	app := fiber.New()
	app.Get("/ping", NewHealthHandler(db, nil).Ping)
	status, out := doJSON(t, app, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "connected", out["database"])
	assert.NotContains(t, out, "cache")

	app = fiber.New()
	app.Get("/ping", NewHealthHandler(db, stubPinger{err: errors.New("down")}).Ping)
	_, out = doJSON(t, app, http.MethodGet, "/ping", "")
	assert.Equal(t, "disconnected", out["cache"])
}

func TestPing_DatabaseDown(t *testing.T) {
	db := testutil.NewDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	app := fiber.New()
	app.Get("/ping", NewHealthHandler(db, nil).Ping)
	status, out := doJSON(t, app, http.MethodGet, "/ping", "")

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "error", out["status"])
	assert.NotEmpty(t, out["error_message"])
}
