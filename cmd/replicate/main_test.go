package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/replicate-client/internal/loggingtest"
	"github.com/replicate/replicate-client/pkg/replicate"
	"github.com/replicate/replicate-client/pkg/webhook"
)

func TestParseInputs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

	input, err := parseInputs([]string{
		"prompt=a cat on a mat",
		"num_outputs=2",
		"guidance=7.5",
		"enhance=true",
		`tags=["a","b"]`,
		"seed=",
		"text=@" + path,
		"equation=1+1=2",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"prompt":      "a cat on a mat",
		"num_outputs": 2.0,
		"guidance":    7.5,
		"enhance":     true,
		"tags":        []any{"a", "b"},
		"seed":        "",
		"text":        "data:text/plain;base64,aGVsbG8gd29ybGQ=",
		"equation":    "1+1=2",
	}, input)

	_, err = parseInputs([]string{"no-equals"})
	assert.ErrorIs(t, err, errUsage)
	_, err = parseInputs([]string{"=value"})
	assert.ErrorIs(t, err, errUsage)
	_, err = parseInputs([]string{"image=@" + filepath.Join(t.TempDir(), "missing.png")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRender(t *testing.T) {
	t.Parallel()

	p := &replicate.Prediction{ID: "p1", Status: replicate.StatusSucceeded, Output: []any{"https://example.com/out.png"}}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", p))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "p1", decoded["id"])

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", p))
	assert.Contains(t, buf.String(), "id: p1\n")
	assert.Contains(t, buf.String(), "status: succeeded\n")
	assert.Contains(t, buf.String(), "output:\n  - https://example.com/out.png\n")

	assert.ErrorIs(t, render(&buf, "xml", p), errUsage)
}

func TestSplitRefs(t *testing.T) {
	t.Parallel()

	owner, name, err := splitModel("acme/hello-world")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "hello-world", name)

	_, _, err = splitModel("acme/hello-world:v1")
	assert.ErrorIs(t, err, errUsage)
	_, _, err = splitModel("v1")
	assert.ErrorIs(t, err, errUsage)

	ref, err := splitVersion("acme/hello-world:v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", ref.ID)
	_, err = splitVersion("acme/hello-world")
	assert.ErrorIs(t, err, errUsage)
}

func TestParseEvents(t *testing.T) {
	t.Parallel()

	events, err := parseEvents("start, completed")
	require.NoError(t, err)
	assert.Equal(t, []webhook.Event{webhook.EventStart, webhook.EventCompleted}, events)

	events, err = parseEvents("")
	require.NoError(t, err)
	assert.Nil(t, events)

	_, err = parseEvents("start,finished")
	assert.ErrorIs(t, err, errUsage)
}

type fakeAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu     sync.Mutex
	bodies map[string]map[string]any
	hits   atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux(), bodies: map[string]map[string]any{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		assert.Equal(t, "Bearer r8_cli", r.Header.Get("Authorization"))
		bs, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		if len(bs) > 0 {
			var body map[string]any
			assert.NoError(t, json.Unmarshal(bs, &body))
			f.mu.Lock()
			f.bodies[r.Method+" "+r.URL.Path] = body
			f.mu.Unlock()
		}
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeAPI) handle(pattern, body string) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func (f *fakeAPI) body(key string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

// run executes the CLI with args, placing the connection flags after the
// subcommand path.
func (f *fakeAPI) run(t *testing.T, path []string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	a := &app{stdout: &stdout, logger: loggingtest.NewTestLogger(t)}
	full := append(append([]string{}, path...), "--api-token", "r8_cli", "--base-url", f.URL, "--poll-interval", "1ms")
	err := a.run(context.Background(), a.command(), append(full, args...))
	return stdout.String(), err
}

func predictionJSON(id string, status replicate.Status, output string) string {
	return fmt.Sprintf(`{"id": %q, "version": "v1", "status": %q, "output": %s, "urls": {"get": "", "cancel": ""}}`, id, status, output)
}

func TestPredictionsCommands(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t)
	api.handle("POST /models/acme/hello-world/predictions", predictionJSON("p1", replicate.StatusStarting, "null"))
	api.handle("GET /predictions/p1", predictionJSON("p1", replicate.StatusSucceeded, `"hello Alice"`))
	api.handle("POST /predictions/p1/cancel", predictionJSON("p1", replicate.StatusCanceled, "null"))

	t.Run("create", func(t *testing.T) {
		out, err := api.run(t, []string{"predictions", "create"}, "--webhook-events", "completed", "acme/hello-world", "text=Alice")
		require.NoError(t, err)
		var p replicate.Prediction
		require.NoError(t, json.Unmarshal([]byte(out), &p))
		assert.Equal(t, replicate.StatusStarting, p.Status)

		body := api.body("POST /models/acme/hello-world/predictions")
		assert.Equal(t, map[string]any{"text": "Alice"}, body["input"])
		assert.Equal(t, []any{"completed"}, body["webhook_events_filter"])
	})

	t.Run("run", func(t *testing.T) {
		out, err := api.run(t, []string{"predictions", "run"}, "acme/hello-world", "text=Alice")
		require.NoError(t, err)
		var p replicate.Prediction
		require.NoError(t, json.Unmarshal([]byte(out), &p))
		assert.Equal(t, replicate.StatusSucceeded, p.Status)
		assert.Equal(t, "hello Alice", p.Output)
	})

	t.Run("cancel as yaml", func(t *testing.T) {
		out, err := api.run(t, []string{"predictions", "cancel"}, "--format", "yaml", "p1")
		require.NoError(t, err)
		assert.Contains(t, out, "status: canceled\n")
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := api.run(t, []string{"predictions", "get"})
		assert.ErrorIs(t, err, errUsage)
	})

	t.Run("api error passes through", func(t *testing.T) {
		_, err := api.run(t, []string{"predictions", "get"}, "missing")
		var apiErr *replicate.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}

func TestFormatCheckedBeforeRequests(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t)
	api.handle("POST /models/acme/hello-world/predictions", predictionJSON("p1", replicate.StatusStarting, "null"))
	api.handle("GET /predictions/p1", predictionJSON("p1", replicate.StatusSucceeded, "null"))

	for _, path := range [][]string{{"predictions", "create"}, {"predictions", "run"}} {
		_, err := api.run(t, path, "--format", "xml", "acme/hello-world", "text=Alice")
		assert.ErrorIs(t, err, errUsage, path)
	}
	_, err := api.run(t, []string{"predictions", "cancel"}, "--format", "xml", "p1")
	assert.ErrorIs(t, err, errUsage)

	assert.Nil(t, api.body("POST /models/acme/hello-world/predictions"))
	assert.Equal(t, int32(0), api.hits.Load())
}

func TestMaxAttempts(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t)
	api.handle("POST /models/acme/hello-world/predictions", predictionJSON("p1", replicate.StatusStarting, "null"))
	api.handle("GET /predictions/p1", predictionJSON("p1", replicate.StatusProcessing, "null"))
	api.handle("POST /models/acme/base/versions/v1/trainings", `{"id": "t1", "status": "starting"}`)
	api.handle("GET /trainings/t1", `{"id": "t1", "status": "processing"}`)

	_, err := api.run(t, []string{"predictions", "run"}, "--max-attempts", "2", "acme/hello-world", "text=Alice")
	require.ErrorIs(t, err, replicate.ErrMaxAttemptsExceeded)
	assert.Contains(t, err.Error(), "2 attempts")

	_, err = api.run(t, []string{"predictions", "create"}, "--wait", "--max-attempts", "1", "acme/hello-world", "text=Alice")
	require.ErrorIs(t, err, replicate.ErrMaxAttemptsExceeded)
	assert.Contains(t, err.Error(), "1 attempts")

	_, err = api.run(t, []string{"trainings", "create"}, "--destination", "me/tuned", "--wait", "--max-attempts", "3", "acme/base:v1")
	require.ErrorIs(t, err, replicate.ErrMaxAttemptsExceeded)
	assert.Contains(t, err.Error(), "3 attempts")
}

func TestListAll(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			_, _ = fmt.Fprintf(w, `{"next": "%s/models?cursor=2", "results": [{"owner": "acme", "name": "a"}]}`, api.URL)
			return
		}
		_, _ = w.Write([]byte(`{"next": null, "results": [{"owner": "acme", "name": "b"}]}`))
	})

	out, err := api.run(t, []string{"models", "list"}, "--all")
	require.NoError(t, err)
	var models []replicate.Model
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Len(t, models, 2)
	assert.Equal(t, "b", models[1].Name)

	out, err = api.run(t, []string{"models", "list"})
	require.NoError(t, err)
	var page replicate.Page[replicate.Model]
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Len(t, page.Results, 1)
	assert.NotNil(t, page.Next)
}

func TestVersionsGetInputs(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t)
	api.handle("GET /models/acme/hello-world/versions/v1", `{
		"id": "v1",
		"openapi_schema": {
			"openapi": "3.0.2",
			"info": {"title": "Cog", "version": "0.1.0"},
			"paths": {},
			"components": {"schemas": {"Input": {"type": "object", "required": ["text"], "properties": {"text": {"type": "string"}, "count": {"type": "integer"}}}}}
		}
	}`)
	api.handle("POST /predictions", predictionJSON("p2", replicate.StatusStarting, "null"))

	out, err := api.run(t, []string{"versions", "get"}, "--inputs", "acme/hello-world:v1")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"count", "text"}, names)

	_, err = api.run(t, []string{"predictions", "create"}, "--validate", "acme/hello-world:v1", "count=1")
	require.ErrorContains(t, err, "invalid input")
	assert.Nil(t, api.body("POST /predictions"))

	_, err = api.run(t, []string{"predictions", "create"}, "--validate", "acme/hello-world:v1", "text=hi")
	require.NoError(t, err)
	assert.Equal(t, "v1", api.body("POST /predictions")["version"])
}

func TestTrainingsCreate(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t)
	api.handle("POST /models/acme/base/versions/v1/trainings", `{"id": "t1", "status": "starting", "destination": "me/tuned"}`)

	out, err := api.run(t, []string{"trainings", "create"}, "--destination", "me/tuned", "acme/base:v1", "epochs=3")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "t1"`)
	body := api.body("POST /models/acme/base/versions/v1/trainings")
	assert.Equal(t, "me/tuned", body["destination"])
	assert.Equal(t, map[string]any{"epochs": 3.0}, body["input"])

	_, err = api.run(t, []string{"trainings", "create"}, "acme/base:v1")
	assert.ErrorIs(t, err, errUsage)
}

func TestWebhooksSend(t *testing.T) {
	t.Parallel()
	const secret = "whsec_dGVzdC1zZWNyZXQta2V5"
	api := newFakeAPI(t)
	api.handle("GET /webhooks/default/secret", `{"key": "`+secret+`"}`)
	api.handle("GET /predictions/p1", predictionJSON("p1", replicate.StatusSucceeded, `"done"`))

	verifier, err := webhook.NewVerifier(secret, 0)
	require.NoError(t, err)
	delivered := make(chan string, 1)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, verifier.Verify(r.Header, body))
		delivered <- r.Header.Get(webhook.HeaderID)
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	_, err = api.run(t, []string{"webhooks", "send"}, receiver.URL, "p1")
	require.NoError(t, err)
	assert.Regexp(t, `^msg_`, <-delivered)
}

func TestWebhooksSendFiltered(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t)
	api.handle("GET /predictions/p1", `{"id": "p1", "status": "succeeded", "webhook_events_filter": ["completed"], "urls": {}}`)

	var received atomic.Int32
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	_, err := api.run(t, []string{"webhooks", "send"}, "--secret", "whsec_dGVzdC1zZWNyZXQta2V5", "--event", "logs", receiver.URL, "p1")
	require.NoError(t, err)
	assert.Equal(t, int32(0), received.Load())

	_, err = api.run(t, []string{"webhooks", "send"}, "--secret", "whsec_dGVzdC1zZWNyZXQta2V5", receiver.URL, "p1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), received.Load())
}

func TestDownloadCommand(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t)
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png bytes"))
	}))
	defer files.Close()
	api.handle("GET /predictions/p1", predictionJSON("p1", replicate.StatusSucceeded, `["`+files.URL+`/out-0.png"]`))

	dir := t.TempDir()
	out, err := api.run(t, []string{"download"}, "--dir", dir, "p1")
	require.NoError(t, err)
	var paths []string
	require.NoError(t, json.Unmarshal([]byte(out), &paths))
	require.Equal(t, []string{filepath.Join(dir, "out-0.png")}, paths)

	bs, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(bs))
}
