package devices

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDevice is a minimal Device used to observe which constructor ran
type mockDevice struct {
	kind Tag
	desc Descriptor
}

func (m *mockDevice) Kind() Tag    { return m.kind }
func (m *mockDevice) ID() string   { return m.desc.String(string(m.kind) + "_id") }
func (m *mockDevice) Name() string { return m.desc.String("name") }

func mockConstructor(kind Tag) Constructor {
	return func(owner Owner, d Descriptor) Device {
		return &mockDevice{kind: kind, desc: d}
	}
}

func mustDescriptor(t *testing.T, raw string) Descriptor {
	t.Helper()
	var d Descriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return d
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register("light_bulb", mockConstructor("light_bulb")))
	require.NoError(t, registry.Register("thermostat", mockConstructor("thermostat")))

	assert.Equal(t, []Tag{"light_bulb", "thermostat"}, registry.Tags())
	assert.True(t, registry.Registered("light_bulb"))
	assert.False(t, registry.Registered("lock"))

	err := registry.Register("", mockConstructor("x"))
	assert.ErrorIs(t, err, ErrInvalidRegistration)

	err = registry.Register("lock", nil)
	assert.ErrorIs(t, err, ErrInvalidRegistration)
}

func TestRegistry_ReRegisterLastWins(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("light_bulb", mockConstructor("first")))
	require.NoError(t, registry.Register("light_bulb", mockConstructor("second")))

	d := mustDescriptor(t, `{"light_bulb_id":"1"}`)
	device, err := registry.Construct(nil, "light_bulb", d)
	require.NoError(t, err)
	assert.Equal(t, Tag("second"), device.Kind())
	assert.Len(t, registry.Tags(), 1)
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("lock", mockConstructor("lock")))

	assert.True(t, registry.Unregister("lock"))
	assert.False(t, registry.Unregister("lock"))
	assert.Empty(t, registry.Tags())
}

func TestRegistry_Classify(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("light_bulb", mockConstructor("light_bulb")))
	require.NoError(t, registry.Register("hub", mockConstructor("hub")))

	tests := []struct {
		name   string
		raw    string
		want   Tag
		wantOK bool
	}{
		{name: "single match", raw: `{"light_bulb_id":"42","name":"Lamp"}`, want: "light_bulb", wantOK: true},
		{name: "unknown kind", raw: `{"unknown_id":"7"}`, wantOK: false},
		{name: "id key without suffix match", raw: `{"id":"7","light_bulb":"x"}`, wantOK: false},
		{name: "unregistered id keys are passed over", raw: `{"upc_id":"3","manufacturer_device_id":"9","hub_id":"1"}`, want: "hub", wantOK: true},
		{name: "first matching key wins", raw: `{"hub_id":"1","light_bulb_id":"2"}`, want: "hub", wantOK: true},
		{name: "first matching key wins reversed", raw: `{"light_bulb_id":"2","hub_id":"1"}`, want: "light_bulb", wantOK: true},
		{name: "empty", raw: `{}`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := registry.Classify(mustDescriptor(t, tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_ClassifyDeterministic(t *testing.T) {
	registry := NewRegistry()
	for _, tag := range []Tag{"a", "b", "c", "d", "e"} {
		require.NoError(t, registry.Register(tag, mockConstructor(tag)))
	}

	d := mustDescriptor(t, `{"name":"x","d_id":"4","b_id":"2","e_id":"5","a_id":"1","c_id":"3"}`)
	for i := 0; i < 100; i++ {
		tag, ok := registry.Classify(d)
		require.True(t, ok)
		require.Equal(t, Tag("d"), tag)
	}
	assert.Equal(t, []Tag{"d", "b", "e", "a", "c"}, registry.Candidates(d))
}

func TestRegistry_ConstructUnregistered(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("light_bulb", mockConstructor("light_bulb")))

	d := mustDescriptor(t, `{"light_bulb_id":"42"}`)
	tag, ok := registry.Classify(d)
	require.True(t, ok)

	registry.Unregister(tag)

	_, err := registry.Construct(nil, tag, d)
	var unregistered *UnregisteredTypeError
	require.True(t, errors.As(err, &unregistered))
	assert.Equal(t, Tag("light_bulb"), unregistered.Tag)
	assert.Contains(t, err.Error(), `"light_bulb" is not registered`)
}

func TestRegistry_ConstructNil(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("ghost", func(Owner, Descriptor) Device { return nil }))

	_, err := registry.Construct(nil, "ghost", Descriptor{})
	assert.ErrorIs(t, err, ErrNilDevice)
}

func TestRegistry_Build(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("light_bulb", mockConstructor("light_bulb")))

	device, ok, err := registry.Build(nil, mustDescriptor(t, `{"light_bulb_id":"42","name":"Lamp"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", device.ID())
	assert.Equal(t, "Lamp", device.Name())

	device, ok, err = registry.Build(nil, mustDescriptor(t, `{"unknown_id":"7"}`))
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, device)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	d := mustDescriptor(t, `{"light_bulb_id":"1"}`)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Register("light_bulb", mockConstructor("light_bulb"))
			registry.Unregister("light_bulb")
		}()
		go func() {
			defer wg.Done()
			if tag, ok := registry.Classify(d); ok {
				_, err := registry.Construct(nil, tag, d)
				if err != nil {
					var unregistered *UnregisteredTypeError
					assert.True(t, errors.As(err, &unregistered))
				}
			}
		}()
	}
	wg.Wait()
}
