package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"table-sync/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T, jobs fakeBuilder, withHistory bool) *fiber.App {
	t.Helper()
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}

	var store HistoryStore
	if withHistory {
		store = newHistory(t)
	}
	svc, err := NewService(defs(names...), jobs, store, zap.NewNop())
	require.NoError(t, err)

	app := fiber.New()
	require.NoError(t, NewFeature(svc, zap.NewNop()).Load(app))
	return app
}

func decode(t *testing.T, app *fiber.App, method, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleList(t *testing.T) {
	app := setupTestApp(t, fakeBuilder{"items": {&fakeJob{}}}, false)

	status, body := decode(t, app, "GET", "/pipelines")
	assert.Equal(t, 200, status)
	pipelines := body["pipelines"].([]any)
	require.Len(t, pipelines, 1)
	assert.Equal(t, "items", pipelines[0].(map[string]any)["name"])
}

func TestHandleSync(t *testing.T) {
	app := setupTestApp(t, fakeBuilder{"items": {&fakeJob{name: "items"}}}, true)

	status, body := decode(t, app, "POST", "/pipelines/items/sync")
	assert.Equal(t, 200, status)
	reports := body["reports"].([]any)
	require.Len(t, reports, 1)
	assert.Equal(t, float64(1), reports[0].(map[string]any)["inserted"])

	status, body = decode(t, app, "GET", "/pipelines/items/runs?limit=5")
	assert.Equal(t, 200, status)
	assert.Len(t, body["runs"], 1)
}

func TestHandleSync_Errors(t *testing.T) {
	app := setupTestApp(t, fakeBuilder{
		"fetch":  {&fakeJob{err: fmt.Errorf("%w: rows of doc/t: timeout", reconcile.ErrFetch)}},
		"config": {&fakeJob{err: fmt.Errorf("%w: key column missing", reconcile.ErrConfiguration)}},
		"other":  {&fakeJob{err: errors.New("insert failed")}},
	}, false)

	status, body := decode(t, app, "POST", "/pipelines/fetch/sync")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Contains(t, body["error"], "fetch failed")

	status, _ = decode(t, app, "POST", "/pipelines/config/sync")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, body = decode(t, app, "POST", "/pipelines/other/sync")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Len(t, body["reports"], 1, "partial reports are returned")

	status, _ = decode(t, app, "POST", "/pipelines/missing/sync")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandlePlan(t *testing.T) {
	job := &fakeJob{name: "items", diff: &reconcile.DiffResult{ToDelete: []reconcile.Row{{ID: "r1"}}}}
	app := setupTestApp(t, fakeBuilder{"items": {job}}, false)

	status, body := decode(t, app, "GET", "/pipelines/items/plan")
	assert.Equal(t, 200, status)
	plans := body["plans"].([]any)
	require.Len(t, plans, 1)
	diff := plans[0].(map[string]any)["diff"].(map[string]any)
	assert.Len(t, diff["to_delete"], 1)
	assert.Equal(t, int32(0), job.runs.Load())
}

func TestHandleRuns(t *testing.T) {
	app := setupTestApp(t, fakeBuilder{"items": {&fakeJob{}}}, false)

	status, _ := decode(t, app, "GET", "/pipelines/items/runs")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)

	status, body := decode(t, app, "GET", "/pipelines/items/runs?limit=abc")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "limit")
}

func TestFeature(t *testing.T) {
	svc, err := NewService(nil, fakeBuilder{}, nil, nil)
	require.NoError(t, err)

	feature := NewFeature(svc, zap.NewNop())
	assert.Equal(t, "pipelines", feature.Name())
	assert.False(t, feature.IsEnabled())
}
