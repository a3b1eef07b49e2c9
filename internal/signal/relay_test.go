package signal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	evs []CreditConsumed
}

func (r *recorder) add(ev CreditConsumed) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []CreditConsumed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CreditConsumed(nil), r.evs...)
}

func TestRelayConvergesTwoProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	newSide := func() (*Hub[CreditConsumed], *Relay, *recorder) {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		hub := &Hub[CreditConsumed]{}
		rec := &recorder{}
		hub.Subscribe(rec.add)
		relay := NewRelay(client, "loxtr:credit-consumed", hub, zerolog.Nop())
		require.NoError(t, relay.Start(ctx))
		t.Cleanup(relay.Stop)
		return hub, relay, rec
	}

	hubA, relayA, recA := newSide()
	_, _, recB := newSide()

	hubA.Publish(CreditConsumed{Amount: 3, Action: "lead_unlock", At: time.Now()})

	require.Eventually(t, func() bool { return len(recB.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := recB.all()[0]
	assert.Equal(t, 3, got.Amount)
	assert.Equal(t, "lead_unlock", got.Action)
	assert.Equal(t, relayA.Origin(), got.Origin)
	assert.False(t, got.Local())

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, recA.all(), 1, "sender must not receive its own event back")
	assert.Len(t, recB.all(), 1, "remote events are not re-forwarded")
}

// publishGate holds every redis PUBLISH until released.
type publishGate struct{ release chan struct{} }

func (g publishGate) DialHook(next redis.DialHook) redis.DialHook { return next }

func (g publishGate) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "publish" {
			select {
			case <-g.release:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return next(ctx, cmd)
	}
}

func (g publishGate) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRelaySlowRedisDoesNotBlockPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	gate := publishGate{release: make(chan struct{})}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client.AddHook(gate)
	t.Cleanup(func() { _ = client.Close() })
	hub := &Hub[CreditConsumed]{}
	relay := NewRelay(client, "loxtr:credit-consumed", hub, zerolog.Nop())
	require.NoError(t, relay.Start(ctx))
	t.Cleanup(relay.Stop)

	otherClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = otherClient.Close() })
	otherHub := &Hub[CreditConsumed]{}
	rec := &recorder{}
	otherHub.Subscribe(rec.add)
	other := NewRelay(otherClient, "loxtr:credit-consumed", otherHub, zerolog.Nop())
	require.NoError(t, other.Start(ctx))
	t.Cleanup(other.Stop)

	published := make(chan struct{})
	go func() {
		for i := 1; i <= 3; i++ {
			hub.Publish(CreditConsumed{Amount: i, Action: "lead_unlock", At: time.Now()})
		}
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("hub publish blocked on redis")
	}
	assert.Empty(t, rec.all())

	close(gate.release)
	require.Eventually(t, func() bool { return len(rec.all()) == 3 }, 2*time.Second, 10*time.Millisecond)
	got := rec.all()
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Amount, got[1].Amount, got[2].Amount})
}
