package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ S string }

func TestDispatchByType(t *testing.T) {
	b := New()
	var pings []int
	var pongs []string
	On(b, func(_ context.Context, p ping) { pings = append(pings, p.N) })
	On(b, func(_ context.Context, p ping) { pings = append(pings, p.N*10) })
	On(b, func(_ context.Context, p pong) { pongs = append(pongs, p.S) })

	Emit(context.Background(), b, ping{N: 1})
	Emit(context.Background(), b, pong{S: "a"})
	Emit(context.Background(), b, struct{}{})

	require.Equal(t, []int{1, 10}, pings)
	require.Equal(t, []string{"a"}, pongs)
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var got []string
	first := On(b, func(_ context.Context, p ping) { got = append(got, "first") })
	On(b, func(_ context.Context, p ping) { got = append(got, "second") })

	first()
	first()
	Emit(context.Background(), b, ping{})
	require.Equal(t, []string{"second"}, got)
}

func TestGlobalBus(t *testing.T) {
	t.Cleanup(func() { Use(nil) })

	Use(nil)
	unsub := Subscribe(func(context.Context, ping) { t.Fatal("no bus installed") })
	Publish(context.Background(), ping{})
	unsub()

	Use(New())
	require.NotNil(t, Current())
	var n int
	unsub = Subscribe(func(_ context.Context, p ping) { n += p.N })
	Publish(context.Background(), ping{N: 2})
	unsub()
	Publish(context.Background(), ping{N: 3})
	require.Equal(t, 2, n)
}
