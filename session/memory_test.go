package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryConfigureMergesUnderCommand(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	res, err := m.Exec(ctx, Request{Command: "SetSystemHostName", Verb: VerbConfigure, Data: map[string]interface{}{"host_name": "r1"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"host_name": "r1"}, res)

	_, err = m.Exec(ctx, Request{Command: "SetSystemHostName", Verb: VerbConfigure, Data: map[string]interface{}{"domain": "lan", "result": "ignored"}})
	require.NoError(t, err)

	tree := m.Tree()
	assert.Equal(t, map[string]interface{}{"host_name": "r1", "domain": "lan"}, tree["SetSystemHostName"])
}

func TestMemorySaveLoadRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Exec(ctx, Request{Command: "A", Verb: VerbConfigure, Data: map[string]interface{}{"x": 1}})
	require.NoError(t, err)

	name, err := m.Exec(ctx, Request{Command: "ConfigFile", Verb: VerbSave, Data: map[string]interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFile, name)

	_, err = m.Exec(ctx, Request{Command: "A", Verb: VerbConfigure, Data: map[string]interface{}{"x": 2}})
	require.NoError(t, err)

	_, err = m.Exec(ctx, Request{Command: "ConfigFile", Verb: VerbLoad, Data: map[string]interface{}{"file_name": DefaultConfigFile}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"x": 1}, m.Tree()["A"])

	_, err = m.Exec(ctx, Request{Command: "ConfigFile", Verb: VerbLoad, Data: map[string]interface{}{"file_name": "missing.boot"}})
	assert.EqualError(t, err, `no saved configuration "missing.boot"`)
}

func TestMemoryAddDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	add := Request{Command: "Image", Verb: VerbAdd, Data: map[string]interface{}{"name": "1.4"}}

	_, err := m.Exec(ctx, add)
	require.NoError(t, err)
	_, err = m.Exec(ctx, add)
	assert.EqualError(t, err, `Image "1.4" already exists`)
	assert.Equal(t, []string{"1.4"}, m.Items("Image"))

	_, err = m.Exec(ctx, Request{Command: "Image", Verb: VerbDelete, Data: map[string]interface{}{"name": "1.4"}})
	require.NoError(t, err)
	_, err = m.Exec(ctx, Request{Command: "Image", Verb: VerbDelete, Data: map[string]interface{}{"name": "1.4"}})
	assert.EqualError(t, err, `Image "1.4" not found`)

	_, err = m.Exec(ctx, Request{Command: "Image", Verb: VerbAdd, Data: map[string]interface{}{}})
	assert.EqualError(t, err, "Image requires a name")
}

func TestMemoryRejectsCancelledContextAndUnknownVerb(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Exec(ctx, Request{Command: "A", Verb: VerbConfigure})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = m.Exec(context.Background(), Request{Command: "A", Verb: "reboot"})
	assert.ErrorIs(t, err, ErrUnsupportedVerb)
}

func TestSessionForwardsVerbsToBackend(t *testing.T) {
	var got []Request
	b := BackendFunc(func(_ context.Context, req Request) (interface{}, error) {
		got = append(got, req)
		return req.Verb, nil
	})
	s, err := NewSession("ConfigFile", b, map[string]interface{}{"file_name": "a"})
	require.NoError(t, err)

	ctx := context.Background()
	for _, call := range []func(context.Context) (interface{}, error){s.Configure, s.Save, s.Load, s.Add, s.Delete} {
		_, err := call(ctx)
		require.NoError(t, err)
	}
	require.Len(t, got, 5)
	assert.Equal(t, []string{VerbConfigure, VerbSave, VerbLoad, VerbAdd, VerbDelete},
		[]string{got[0].Verb, got[1].Verb, got[2].Verb, got[3].Verb, got[4].Verb})
	assert.Equal(t, "ConfigFile", got[0].Command)

	_, err = NewSession("X", nil, nil)
	assert.EqualError(t, err, "session: nil backend")
}
