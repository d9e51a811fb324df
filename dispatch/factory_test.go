package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/configql/executor"
	"github.com/Protocol-Lattice/configql/lexer"
	"github.com/Protocol-Lattice/configql/parser"
	"github.com/Protocol-Lattice/configql/session"
)

// recordingBackend answers every request with "<verb> <command>".
type recordingBackend struct {
	mu   sync.Mutex
	reqs []session.Request
	err  error
}

func (b *recordingBackend) Exec(_ context.Context, req session.Request) (interface{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reqs = append(b.reqs, req)
	if b.err != nil {
		return nil, b.err
	}
	return req.Verb + " " + req.Command, nil
}

type testEnv struct {
	exec      *executor.Executor
	backend   *recordingBackend
	overrides *Overrides
	hook      *logtest.Hook
	events    *eventSink
	factory   *Factory
}

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) Publish(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, v.(Event))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	env := &testEnv{
		exec:      executor.New(),
		backend:   &recordingBackend{},
		overrides: NewOverrides(),
		hook:      hook,
		events:    &eventSink{},
	}
	env.factory = NewFactory(env.exec,
		WithOverrides(env.overrides),
		WithSessionFunc(func() (session.Backend, error) { return env.backend, nil }),
		WithLogger(logger),
		WithPublisher(env.events),
	)
	return env
}

func TestConfigureResolverScenario(t *testing.T) {
	env := newTestEnv(t)
	h, err := env.factory.MakeConfigureResolver("SetSystemHostName")
	require.NoError(t, err)
	assert.Equal(t, "SetSystemHostName", h.CommandID)
	assert.Equal(t, Configure, h.Verb)
	assert.Equal(t, "resolve_set_system_host_name", h.Name)
	assert.Equal(t, []string{"SetSystemHostName"}, env.exec.Mutations())

	got := h.Invoke(context.Background(), map[string]interface{}{
		"data": map[string]interface{}{"host_name": "r1"},
	})
	want := Result{
		Success: true,
		Data:    map[string]interface{}{"host_name": "r1", "result": "configure SetSystemHostName"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected envelope (-want +got):\n%s", diff)
	}
	require.Len(t, env.backend.reqs, 1)
	assert.Equal(t, "SetSystemHostName", env.backend.reqs[0].Command)
}

func TestPrefixResolverScenarios(t *testing.T) {
	env := newTestEnv(t)

	save, err := env.factory.MakeConfigFileResolver("saveConfigFile")
	require.NoError(t, err)
	assert.Equal(t, "ConfigFile", save.CommandID)
	assert.Equal(t, Save, save.Verb)

	del, err := env.factory.MakeImageResolver("deleteImage")
	require.NoError(t, err)
	assert.Equal(t, "Image", del.CommandID)
	assert.Equal(t, Delete, del.Verb)

	res := del.Invoke(context.Background(), map[string]interface{}{"data": map[string]interface{}{"name": "1.4"}})
	assert.True(t, res.Success)
	assert.Equal(t, "delete Image", res.Data["result"])
}

func TestPrefixResolverFailsAtRegistration(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.factory.MakeImageResolver("saveConfigFile")

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Empty(t, env.exec.Mutations())
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.factory.MakeConfigureResolver("SetSystemHostName")
	require.NoError(t, err)
	_, err = env.factory.MakeConfigureResolver("SetSystemHostName")
	assert.ErrorIs(t, err, executor.ErrDuplicateResolver)
}

func TestMissingDataIsReportedWithoutDispatch(t *testing.T) {
	env := newTestEnv(t)
	h, err := env.factory.MakeConfigFileResolver("loadConfigFile")
	require.NoError(t, err)

	got := h.Invoke(context.Background(), map[string]interface{}{})
	if diff := cmp.Diff(Result{Success: false, Errors: []string{"missing data"}}, got); diff != "" {
		t.Fatalf("unexpected envelope (-want +got):\n%s", diff)
	}
	assert.Empty(t, env.backend.reqs)
	assert.Empty(t, env.events.events)
}

func TestDataMustBeAnObject(t *testing.T) {
	env := newTestEnv(t)
	h, err := env.factory.MakeConfigureResolver("SetX")
	require.NoError(t, err)

	for _, data := range []interface{}{nil, "text", map[string]interface{}(nil)} {
		got := h.Invoke(context.Background(), map[string]interface{}{"data": data})
		assert.Equal(t, Failed("data must be an object"), got)
	}
}

type hostName struct {
	*session.Session
}

func (h *hostName) Configure(ctx context.Context) (interface{}, error) {
	if h.Data["host_name"] == "" {
		return nil, errors.New("host name must not be empty")
	}
	return "custom", nil
}

func TestOverrideTakesPrecedence(t *testing.T) {
	env := newTestEnv(t)
	h, err := env.factory.MakeConfigureResolver("SetSystemHostName")
	require.NoError(t, err)

	before := h.Invoke(context.Background(), map[string]interface{}{"data": map[string]interface{}{"host_name": "a"}})
	assert.Equal(t, "configure SetSystemHostName", before.Data["result"])

	// registered after the handler was built; resolution happens per call
	require.NoError(t, env.overrides.Register("SetSystemHostName", func(b session.Backend, data map[string]interface{}) (interface{}, error) {
		base, err := session.NewSession("SetSystemHostName", b, data)
		if err != nil {
			return nil, err
		}
		return &hostName{Session: base}, nil
	}))

	after := h.Invoke(context.Background(), map[string]interface{}{"data": map[string]interface{}{"host_name": "b"}})
	assert.Equal(t, Succeeded(map[string]interface{}{"host_name": "b", "result": "custom"}), after)

	failed := h.Invoke(context.Background(), map[string]interface{}{"data": map[string]interface{}{"host_name": ""}})
	assert.Equal(t, Failed("host name must not be empty"), failed)
	assert.Len(t, env.backend.reqs, 1)
}

func TestErrorsBecomeEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(env *testEnv)
		verb    Verb
		wantErr string
	}{
		{
			name: "session lookup",
			setup: func(env *testEnv) {
				env.factory.session = func() (session.Backend, error) { return nil, errors.New("no configuration session available") }
			},
			verb:    Configure,
			wantErr: "no configuration session available",
		},
		{
			name: "construction",
			setup: func(env *testEnv) {
				env.overrides.MustRegister("Thing", func(session.Backend, map[string]interface{}) (interface{}, error) {
					return nil, errors.New("invalid payload")
				})
			},
			verb:    Configure,
			wantErr: "invalid payload",
		},
		{
			name: "method not found",
			setup: func(env *testEnv) {
				env.overrides.MustRegister("Thing", func(session.Backend, map[string]interface{}) (interface{}, error) {
					return struct{}{}, nil
				})
			},
			verb:    Save,
			wantErr: "Thing has no method save",
		},
		{
			name:    "unknown verb on base session",
			setup:   func(*testEnv) {},
			verb:    Verb("reboot"),
			wantErr: "Thing has no method reboot",
		},
		{
			name:    "execution",
			setup:   func(env *testEnv) { env.backend.err = errors.New("commit failed") },
			verb:    Configure,
			wantErr: "commit failed",
		},
		{
			name: "panic",
			setup: func(env *testEnv) {
				env.overrides.MustRegister("Thing", func(session.Backend, map[string]interface{}) (interface{}, error) {
					panic("boom")
				})
			},
			verb:    Configure,
			wantErr: "panic: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)
			h, err := env.factory.MakeMutationResolver("thing", "Thing", tt.verb)
			require.NoError(t, err)

			got := h.Invoke(context.Background(), map[string]interface{}{"data": map[string]interface{}{}})
			if diff := cmp.Diff(Failed(tt.wantErr), got); diff != "" {
				t.Fatalf("unexpected envelope (-want +got):\n%s", diff)
			}

			require.Len(t, env.events.events, 1)
			assert.Equal(t, "thing", env.events.events[0].Mutation)
			assert.False(t, env.events.events[0].Result.Success)
			assert.Equal(t, logrus.WarnLevel, env.hook.LastEntry().Level)
		})
	}
}

type restarter struct{}

func (restarter) Invoke(_ context.Context, verb string) (interface{}, error) {
	return "invoked " + verb, nil
}

func TestInvokerServesCustomVerbs(t *testing.T) {
	env := newTestEnv(t)
	env.overrides.MustRegister("Service", func(session.Backend, map[string]interface{}) (interface{}, error) {
		return restarter{}, nil
	})
	h, err := env.factory.MakePrefixResolver("restartService", "restart")
	require.NoError(t, err)
	assert.Equal(t, Verb("restart"), h.Verb)

	got := h.Invoke(context.Background(), map[string]interface{}{"data": map[string]interface{}{}})
	assert.Equal(t, "invoked restart", got.Data["result"])
}

func TestResolveThroughExecutor(t *testing.T) {
	env := newTestEnv(t)
	h, err := env.factory.MakeConfigFileResolver("saveConfigFile")
	require.NoError(t, err)

	out, err := h.Resolve(context.Background(), executor.ResolveInfo{FieldName: "saveConfigFile"},
		map[string]interface{}{"data": map[string]interface{}{"file_name": "a.boot"}})
	require.NoError(t, err)
	res, ok := out.(Result)
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.Equal(t, "save ConfigFile", res.Data["result"])

	require.Len(t, env.events.events, 1)
	ev := env.events.events[0]
	assert.NotEmpty(t, ev.RequestID)
	assert.Equal(t, Save, ev.Verb)
	assert.Equal(t, "ConfigFile", ev.Command)
}

func TestConcurrentInvocations(t *testing.T) {
	env := newTestEnv(t)
	h, err := env.factory.MakeConfigureResolver("SetX")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := h.Invoke(context.Background(), map[string]interface{}{"data": map[string]interface{}{"i": i}})
			assert.True(t, res.Success)
			assert.Equal(t, i, res.Data["i"])
		}(i)
	}
	wg.Wait()
	assert.Len(t, env.backend.reqs, 32)
}

func TestSharedVariableKeepsPayloadsApart(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.factory.MakeConfigureResolver("SetA")
	require.NoError(t, err)
	_, err = env.factory.MakeConfigureResolver("SetB")
	require.NoError(t, err)

	p := parser.New(lexer.New(`mutation($d: In) { a: SetA(data: $d) { data } b: SetB(data: $d) { data } }`))
	doc := p.ParseDocument()
	require.Empty(t, p.Errors())

	vars := map[string]interface{}{"d": map[string]interface{}{"x": 1}}
	out, err := env.exec.Execute(context.Background(), doc, vars)
	require.NoError(t, err)

	fields := out["data"].(map[string]interface{})
	a := fields["a"].(map[string]interface{})["data"]
	b := fields["b"].(map[string]interface{})["data"]
	assert.Equal(t, map[string]interface{}{"x": 1, "result": "configure SetA"}, a)
	assert.Equal(t, map[string]interface{}{"x": 1, "result": "configure SetB"}, b)
	assert.Equal(t, map[string]interface{}{"d": map[string]interface{}{"x": 1}}, vars)

	require.Len(t, env.backend.reqs, 2)
	assert.Equal(t, "SetB", env.backend.reqs[1].Command)
	assert.NotEqual(t, "configure SetA", env.backend.reqs[1].Data["result"])
}
