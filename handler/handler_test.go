package handler

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/Protocol-Lattice/configql/executor"
)

func newHandler(t *testing.T) (*Handler, *executor.Executor) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	exec := executor.New()
	exec.RegisterQueryResolver("greet", func(_ context.Context, _ executor.ResolveInfo, args map[string]interface{}) (interface{}, error) {
		if name, ok := args["name"].(string); ok {
			return "hi " + name, nil
		}
		return "hi", nil
	})
	exec.RegisterQueryResolver("whoami", func(ctx context.Context, _ executor.ResolveInfo, _ map[string]interface{}) (interface{}, error) {
		return RequestID(ctx), nil
	})
	return New(exec, logger), exec
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestGraphQL(t *testing.T) {
	h, _ := newHandler(t)
	w := post(t, h, `{"query":"query ($n: String) { greet(name: $n) }","variables":{"n":"bob"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, map[string]interface{}{
		"data": map[string]interface{}{"greet": "hi bob"},
	}, decode(t, w.Body.Bytes()))
}

func TestGraphQLNilVariables(t *testing.T) {
	h, _ := newHandler(t)
	w := post(t, h, `{"query":"{ greet }","variables":null}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGraphQLRequestIDReachesResolvers(t *testing.T) {
	h, _ := newHandler(t)
	w := post(t, h, `{"query":"{ whoami }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w.Body.Bytes())["data"].(map[string]interface{})
	assert.Equal(t, w.Header().Get(RequestIDHeader), data["whoami"])
}

func TestGraphQLErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"invalid json", "not-json", http.StatusBadRequest, "invalid JSON"},
		{"empty document", `{"query":""}`, http.StatusInternalServerError, "no definitions found"},
		{"syntax error", `{"query":"{ greet(name: ) }"}`, http.StatusBadRequest, `line 1: unexpected value ")"`},
		{"unknown field", `{"query":"{ nope }"}`, http.StatusInternalServerError, "no query resolver found for field nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(t)
			w := post(t, h, tt.body)
			require.Equal(t, tt.status, w.Code)
			errs := decode(t, w.Body.Bytes())["errors"].([]interface{})
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.message, errs[0].(map[string]interface{})["message"])
		})
	}
}

func TestRouter(t *testing.T) {
	h, _ := newHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/graphql", "application/json", strings.NewReader(`{"query":"{ greet }"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/graphql")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouterAccessLog(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h := New(executor.New(), logger)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/graphql")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.InfoLevel && strings.Contains(e.Message, "GET /graphql") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFastHTTP(t *testing.T) {
	h, _ := newHandler(t)
	ln := fasthttputil.NewInmemoryListener()
	s := &fasthttp.Server{Handler: h.FastHTTP}
	go s.Serve(ln) //nolint:errcheck
	defer s.Shutdown()

	c := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	do := func(method, body string) (int, []byte) {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)
		req.SetRequestURI("http://configql/graphql")
		req.Header.SetMethod(method)
		req.SetBodyString(body)
		require.NoError(t, c.Do(req, resp))
		return resp.StatusCode(), append([]byte(nil), resp.Body()...)
	}

	status, body := do(fasthttp.MethodPost, `{"query":"{ greet(name: \"ann\") }"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"data": map[string]interface{}{"greet": "hi ann"}}, decode(t, body))

	status, _ = do(fasthttp.MethodGet, "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, _ = do(fasthttp.MethodPost, "{")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubscription(t *testing.T) {
	h, exec := newHandler(t)
	events := make(chan interface{}, 2)
	events <- map[string]interface{}{"mutation": "saveConfigFile"}
	events <- map[string]interface{}{"mutation": "loadConfigFile"}
	close(events)
	exec.RegisterSubscriptionResolver("mutationResults", func(context.Context, executor.ResolveInfo, map[string]interface{}) (interface{}, error) {
		return events, nil
	})

	srv := httptest.NewServer(h.Router())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/subscriptions"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"query":"subscription { mutationResults }"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var got []string
	for i := 0; i < 2; i++ {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		data := decode(t, msg)["data"].(map[string]interface{})
		got = append(got, data["mutationResults"].(map[string]interface{})["mutation"].(string))
	}
	assert.Equal(t, []string{"saveConfigFile", "loadConfigFile"}, got)
}

func TestSubscriptionRejectsQueries(t *testing.T) {
	h, _ := newHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/subscriptions"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"query":"{ greet }"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	errs := decode(t, msg)["errors"].([]interface{})
	assert.Equal(t, "provided operation is not a subscription", errs[0].(map[string]interface{})["message"])
}
