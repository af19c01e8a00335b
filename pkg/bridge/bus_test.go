package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/miniapp/pkg/errors"
)

func TestBusOrder(t *testing.T) {
	b := NewBus()
	var got []string
	b.On("pinged", Listen(func(Event) { got = append(got, "a") }))
	b.On("pinged", Listen(func(Event) { got = append(got, "b") }))
	b.On("pinged", Listen(func(Event) { got = append(got, "c") }))
	b.Emit(pinged{})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestBusDuplicateRegistration(t *testing.T) {
	b := NewBus()
	calls := 0
	l := Listen(func(Event) { calls++ })
	b.On("pinged", l)
	b.On("pinged", l)
	assert.Equal(t, 2, b.Count("pinged"))

	b.Emit(pinged{})
	assert.Equal(t, 2, calls)

	assert.True(t, b.Off("pinged", l))
	assert.Equal(t, 1, b.Count("pinged"))
	b.Emit(pinged{})
	assert.Equal(t, 3, calls)

	assert.True(t, b.Off("pinged", l))
	assert.False(t, b.Off("pinged", l))
	assert.Equal(t, 0, b.Count("pinged"))
}

func TestBusOffRemovesEarliest(t *testing.T) {
	b := NewBus()
	var got []string
	x := Listen(func(Event) { got = append(got, "x") })
	y := Listen(func(Event) { got = append(got, "y") })
	b.On("pinged", x)
	b.On("pinged", y)
	b.On("pinged", x)
	b.Off("pinged", x)
	b.Emit(pinged{})
	assert.Equal(t, []string{"y", "x"}, got)
}

func TestBusSnapshotIsolation(t *testing.T) {
	b := NewBus()
	var got []string
	var second *Listener
	added := Listen(func(Event) { got = append(got, "added") })
	first := Listen(func(Event) {
		got = append(got, "first")
		b.Off("pinged", second)
		b.On("pinged", added)
	})
	second = Listen(func(Event) { got = append(got, "second") })
	b.On("pinged", first)
	b.On("pinged", second)

	b.Emit(pinged{})
	assert.Equal(t, []string{"first", "second"}, got)

	got = nil
	b.Emit(pinged{})
	assert.Equal(t, []string{"first", "added"}, got)
}

func TestBusHandlerFaultIsolated(t *testing.T) {
	rep := captureReports(t)
	b := NewBus()
	var got []string
	b.On("pinged", Listen(func(Event) { got = append(got, "before") }))
	b.On("pinged", Listen(func(Event) { panic("listener broke") }))
	b.On("pinged", Listen(func(Event) { got = append(got, "after") }))

	b.Emit(pinged{})
	assert.Equal(t, []string{"before", "after"}, got)

	errs := rep.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "pinged", errs[0].Event)
	assert.Equal(t, errors.KindHandler, errs[0].Kind)
	assert.ErrorIs(t, errs[0], errors.ErrHandlerFault)
}

func TestListenForFiltersType(t *testing.T) {
	b := NewBus()
	var got []int
	l := ListenFor(func(e pinged) { got = append(got, e.N) })
	b.On("pinged", l)
	b.On("popupClosed", l)

	b.Emit(pinged{N: 7})
	b.Emit(closed{ButtonID: "ok"})
	assert.Equal(t, []int{7}, got)
}

func TestBusIgnoresNil(t *testing.T) {
	b := NewBus()
	b.On("pinged", nil)
	b.On("pinged", &Listener{})
	assert.Equal(t, 0, b.Count("pinged"))
	b.Emit(nil)
}

func TestCatalogDecode(t *testing.T) {
	e, err := testCatalog.Decode("pinged", []byte(`{"n":3}`))
	require.NoError(t, err)
	assert.Equal(t, pinged{N: 3}, e)

	e, err = testCatalog.Decode("pinged", nil)
	require.NoError(t, err)
	assert.Equal(t, pinged{}, e)

	_, err = testCatalog.Decode("pinged", []byte(`{"n":"three"}`))
	assert.ErrorIs(t, err, errors.ErrProtocolDecode)
	var pe *errors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "pinged", pe.Event)

	_, err = testCatalog.Decode("teleported", nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.ErrorIs(t, err, errors.ErrProtocolDecode)

	assert.Equal(t, []EventName{"pinged", "popupClosed"}, testCatalog.Names())
}
