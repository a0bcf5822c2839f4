package rancher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/corral/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Action string
	Body   map[string]any
	Auth   string
	ReqID  string
}

// newTestServer serves canned JSON keyed by "METHOD path[?action]" and records requests
func newTestServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var recorded []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Action: r.URL.Query().Get("action"),
			Auth:   r.Header.Get("Authorization"),
			ReqID:  r.Header.Get("X-Request-Id"),
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		recorded = append(recorded, rec)

		key := r.Method + " " + r.URL.Path
		if rec.Action != "" {
			key += "?" + rec.Action
		}
		handler, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w)
	}))
	t.Cleanup(server.Close)

	return server, &recorded
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRateLimit(0, 0)}, opts...)
	c, err := NewClient(url+"/v2-beta/", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadEndpoint(t *testing.T) {
	_, err := NewClient("localhost:8080")
	assert.Error(t, err)

	_, err = NewClient("://nope")
	assert.Error(t, err)
}

func TestStacks(t *testing.T) {
	server, recorded := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /v2-beta/projects/1a7/stacks": respond(http.StatusOK, `{"data":[{"id":"1st1","name":"web"},{"id":"1st2","name":"db"}]}`),
	})
	c := newTestClient(t, server.URL, WithCredentials("access", "secret"), WithRequestID("run-1"))

	stacks, err := c.Stacks(context.Background(), "1a7")
	require.NoError(t, err)

	list, ok := stacks.Get()
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "1st1", list[0].ID)
	assert.Equal(t, "db", list[1].Name)

	require.Len(t, *recorded, 1)
	req := (*recorded)[0]
	assert.Equal(t, "Basic YWNjZXNzOnNlY3JldA==", req.Auth)
	assert.Equal(t, "run-1", req.ReqID)
}

func TestAnonymousClientSendsNoAuth(t *testing.T) {
	server, recorded := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /v2-beta/projects/1a7": respond(http.StatusOK, `{"id":"1a7","name":"Default"}`),
	})
	c := newTestClient(t, server.URL)

	env, err := c.Environment(context.Background(), "1a7")
	require.NoError(t, err)
	got, ok := env.Get()
	require.True(t, ok)
	assert.Equal(t, "Default", got.Name)
	assert.Empty(t, (*recorded)[0].Auth)
}

// TestNotFoundIsAbsent tests that 404 maps to an absent result rather than an error
func TestNotFoundIsAbsent(t *testing.T) {
	server, _ := newTestServer(t, nil)
	c := newTestClient(t, server.URL)

	env, err := c.Environment(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, env.Present())

	svc, err := c.Service(context.Background(), "1a7", "1s9")
	require.NoError(t, err)
	assert.False(t, svc.Present())
}

// TestEmptySuccessBodyIsAbsent tests that a 2xx reply without a body yields no result
func TestEmptySuccessBodyIsAbsent(t *testing.T) {
	server, _ := newTestServer(t, map[string]func(http.ResponseWriter){
		"POST /v2-beta/projects/1a7/stack":                 respond(http.StatusCreated, ""),
		"POST /v2-beta/projects/1a7/service":               respond(http.StatusCreated, "  \n"),
		"POST /v2-beta/projects/1a7/services/1s1/?upgrade": respond(http.StatusAccepted, ""),
	})
	c := newTestClient(t, server.URL)
	ctx := context.Background()

	stack, err := c.CreateStack(ctx, types.Stack{Name: "web"}, "1a7")
	require.NoError(t, err)
	assert.False(t, stack.Present())

	svc, err := c.CreateService(ctx, types.Service{Name: "nginx"}, "1a7", "1st1")
	require.NoError(t, err)
	assert.False(t, svc.Present())

	upgraded, err := c.UpgradeService(ctx, "1a7", "1s1", types.ServiceUpgrade{})
	require.NoError(t, err)
	assert.False(t, upgraded.Present())
}

// TestStatusError tests that unexpected status codes surface as ErrRemoteCallFailed
func TestStatusError(t *testing.T) {
	server, _ := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /v2-beta/projects/1a7/stacks": respond(http.StatusInternalServerError, `{"message":"boom"}`),
	})
	c := newTestClient(t, server.URL)

	stacks, err := c.Stacks(context.Background(), "1a7")
	require.Error(t, err)
	assert.False(t, stacks.Present())
	assert.ErrorIs(t, err, ErrRemoteCallFailed)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "stacks", statusErr.Operation)
	assert.Contains(t, statusErr.Body, "boom")
}

func TestTransportError(t *testing.T) {
	server, _ := newTestServer(t, nil)
	url := server.URL
	server.Close()

	c := newTestClient(t, url)
	_, err := c.Stacks(context.Background(), "1a7")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteCallFailed)
}

func TestCreateStackSendsName(t *testing.T) {
	server, recorded := newTestServer(t, map[string]func(http.ResponseWriter){
		"POST /v2-beta/projects/1a7/stack": respond(http.StatusCreated, `{"id":"1st5","name":"web"}`),
	})
	c := newTestClient(t, server.URL)

	stack, err := c.CreateStack(context.Background(), types.Stack{Name: "web"}, "1a7")
	require.NoError(t, err)
	got, ok := stack.Get()
	require.True(t, ok)
	assert.Equal(t, "1st5", got.ID)

	assert.Equal(t, map[string]any{"name": "web"}, (*recorded)[0].Body)
}

func TestCreateServiceSetsStackID(t *testing.T) {
	server, recorded := newTestServer(t, map[string]func(http.ResponseWriter){
		"POST /v2-beta/projects/1a7/service": respond(http.StatusCreated, `{"id":"1s1","name":"api","state":"registering"}`),
	})
	c := newTestClient(t, server.URL)

	svc := types.Service{Name: "api", LaunchConfig: &types.LaunchConfig{ImageUUID: "docker:nginx"}}
	created, err := c.CreateService(context.Background(), svc, "1a7", "1st5")
	require.NoError(t, err)
	got, ok := created.Get()
	require.True(t, ok)
	assert.Equal(t, "1s1", got.ID)

	body := (*recorded)[0].Body
	assert.Equal(t, "1st5", body["stackId"])
	assert.Equal(t, "api", body["name"])
	assert.Equal(t, "docker:nginx", body["launchConfig"].(map[string]any)["imageUuid"])
}

func TestServicesInStack(t *testing.T) {
	server, _ := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /v2-beta/projects/1a7/stacks/1st5/services": respond(http.StatusOK, `{"data":[{"id":"1s1","name":"api","state":"active","launchConfig":{"imageUuid":"docker:nginx:1","labels":{"a":"b"}}}]}`),
	})
	c := newTestClient(t, server.URL)

	services, err := c.Services(context.Background(), "1a7", "1st5")
	require.NoError(t, err)
	list, ok := services.Get()
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "active", list[0].State)
	require.NotNil(t, list[0].LaunchConfig)
	assert.Equal(t, "docker:nginx:1", list[0].LaunchConfig.ImageUUID)
	assert.Contains(t, list[0].LaunchConfig.Extra, "labels")
}

// TestServiceActions tests the upgrade, finish and rollback action routes
func TestServiceActions(t *testing.T) {
	server, recorded := newTestServer(t, map[string]func(http.ResponseWriter){
		"POST /v2-beta/projects/1a7/services/1s1/?upgrade":       respond(http.StatusAccepted, `{"id":"1s1","state":"upgrading"}`),
		"POST /v2-beta/projects/1a7/services/1s1/?finishupgrade": respond(http.StatusAccepted, `{"id":"1s1","state":"finishing-upgrade"}`),
		"POST /v2-beta/projects/1a7/services/1s1/?rollback":      respond(http.StatusAccepted, `{"id":"1s1","state":"rolling-back"}`),
	})
	c := newTestClient(t, server.URL)
	ctx := context.Background()

	upgrade := types.ServiceUpgrade{InServiceStrategy: &types.InServiceStrategy{
		StartFirst:   true,
		LaunchConfig: &types.LaunchConfig{ImageUUID: "docker:nginx:2"},
	}}
	svc, err := c.UpgradeService(ctx, "1a7", "1s1", upgrade)
	require.NoError(t, err)
	got, ok := svc.Get()
	require.True(t, ok)
	assert.Equal(t, "upgrading", got.State)

	_, err = c.FinishUpgrade(ctx, "1a7", "1s1")
	require.NoError(t, err)
	_, err = c.RollbackUpgrade(ctx, "1a7", "1s1")
	require.NoError(t, err)

	require.Len(t, *recorded, 3)
	assert.Equal(t, "upgrade", (*recorded)[0].Action)
	strategy := (*recorded)[0].Body["inServiceStrategy"].(map[string]any)
	assert.Equal(t, true, strategy["startFirst"])
	assert.Equal(t, "finishupgrade", (*recorded)[1].Action)
	assert.Equal(t, "rollback", (*recorded)[2].Action)
}

func TestContextCancelled(t *testing.T) {
	server, _ := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /v2-beta/projects/1a7/stacks": respond(http.StatusOK, `{"data":[]}`),
	})
	c := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Stacks(ctx, "1a7")
	assert.ErrorIs(t, err, context.Canceled)
}
