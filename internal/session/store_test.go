package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshaninfordham/safebiteai/internal/domain"
)

func newTestStore() *Store {
	return NewStore(DefaultStoreConfig(), nil)
}

func step(id string, status domain.StepStatus) domain.StepEvent {
	return domain.NewStepEvent(id, id, status, "")
}

func TestCreateIsIdempotent(t *testing.T) {
	st := newTestStore()
	require.True(t, st.Create("s1"))

	var got []domain.Message
	_, ok := st.Subscribe("s1", func(m domain.Message) { got = append(got, m) })
	require.True(t, ok)
	require.True(t, st.AppendEvent("s1", step("intent", domain.StepStatusRunning)))

	assert.False(t, st.Create("s1"))
	assert.Equal(t, 1, st.ObserverCount("s1"))

	snap, err := st.Get("s1")
	require.NoError(t, err)
	assert.Len(t, snap.Events, 1)
	assert.Len(t, got, 1)
}

func TestAppendEventUnknownSessionIsNoop(t *testing.T) {
	st := newTestStore()
	assert.False(t, st.AppendEvent("missing", step("intent", domain.StepStatusRunning)))
	assert.False(t, st.SetFinal("missing", &domain.SafetyReport{}))

	_, err := st.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestObserversNotifiedInRegistrationOrder(t *testing.T) {
	st := newTestStore()
	st.Create("s1")

	var order []string
	st.Subscribe("s1", func(domain.Message) { order = append(order, "a") })
	st.Subscribe("s1", func(domain.Message) { order = append(order, "b") })
	st.AppendEvent("s1", step("intent", domain.StepStatusRunning))

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestSetFinalFirstWriteWins(t *testing.T) {
	st := newTestStore()
	st.Create("s1")

	var terminals int
	st.Subscribe("s1", func(m domain.Message) {
		if m.IsTerminal() {
			terminals++
		}
	})

	first := &domain.SafetyReport{ProductName: "first"}
	assert.True(t, st.SetFinal("s1", first))
	assert.False(t, st.SetFinal("s1", &domain.SafetyReport{ProductName: "second"}))
	assert.False(t, st.SetError("s1", "late failure"))
	assert.False(t, st.AppendEvent("s1", step("late", domain.StepStatusRunning)))

	snap, err := st.Get("s1")
	require.NoError(t, err)
	assert.True(t, snap.Done)
	assert.Equal(t, "first", snap.Result.ProductName)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Events)
	assert.Equal(t, 1, terminals)
	assert.Equal(t, 0, st.ObserverCount("s1"))
}

func TestSubscribeAfterFinishReplaysHistoryThenTerminal(t *testing.T) {
	st := newTestStore()
	st.Create("s1")
	st.AppendEvent("s1", step("intent", domain.StepStatusRunning))
	st.AppendEvent("s1", step("intent", domain.StepStatusCompleted))
	st.SetError("s1", "agent failed to generate report")

	var got []domain.Message
	unsubscribe, ok := st.Subscribe("s1", func(m domain.Message) { got = append(got, m) })
	require.True(t, ok)
	unsubscribe()

	require.Len(t, got, 3)
	assert.Equal(t, domain.MessageTypeStep, got[0].Type)
	assert.Equal(t, domain.StepStatusCompleted, got[1].Step.Status)
	assert.Equal(t, domain.MessageTypeError, got[2].Type)
	assert.Equal(t, "agent failed to generate report", got[2].Error)
	assert.Equal(t, 0, st.ObserverCount("s1"))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	st := newTestStore()
	st.Create("s1")

	var count int
	unsubscribe, _ := st.Subscribe("s1", func(domain.Message) { count++ })
	st.AppendEvent("s1", step("intent", domain.StepStatusRunning))
	unsubscribe()
	unsubscribe()
	st.AppendEvent("s1", step("intent", domain.StepStatusCompleted))

	assert.Equal(t, 1, count)
	snap, _ := st.Get("s1")
	assert.Len(t, snap.Events, 2)
}

func TestSubscribeUnknownSession(t *testing.T) {
	st := newTestStore()
	unsubscribe, ok := st.Subscribe("nope", func(domain.Message) {})
	assert.False(t, ok)
	unsubscribe()
}

func TestFinishedSessionsExpire(t *testing.T) {
	st := NewStore(StoreConfig{TTL: 30 * time.Millisecond, Capacity: 10}, nil)
	st.Create("s1")
	st.Create("s2")
	st.SetFinal("s1", &domain.SafetyReport{})

	assert.Eventually(t, func() bool {
		return !st.Exists("s1")
	}, time.Second, 10*time.Millisecond)
	// in-flight sessions never expire
	assert.True(t, st.Exists("s2"))
	assert.Eventually(t, func() bool {
		return st.Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestFinishedSessionsBoundedByCapacity(t *testing.T) {
	st := NewStore(StoreConfig{TTL: time.Hour, Capacity: 2}, nil)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("s%d", i)
		st.Create(id)
		st.SetFinal(id, &domain.SafetyReport{})
	}
	assert.False(t, st.Exists("s0"))
	assert.True(t, st.Exists("s1"))
	assert.True(t, st.Exists("s2"))
}
