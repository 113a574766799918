package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrder(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()

	bus.Publish(NewExecutionStarted("e1", "a1"))
	bus.Publish(NewIterationStarted("e1", 1, "agent.task"))
	bus.Publish(NewExecutionCompleted("e1", "42", 1))

	first, ok := sub.Recv()
	require.True(t, ok)
	require.Equal(t, "execution_started", first.Type())

	second, ok := sub.Recv()
	require.True(t, ok)
	require.Equal(t, "iteration_started", second.Type())

	third, ok := sub.Recv()
	require.True(t, ok)
	require.Equal(t, "execution_completed", third.Type())
}

func TestSubscribeFilteredScopesToExecution(t *testing.T) {
	bus := New()
	sub := bus.SubscribeFiltered(ForExecution("e1"))

	bus.Publish(NewExecutionStarted("e2", "a1"))
	bus.Publish(NewExecutionStarted("e1", "a1"))

	ev, ok := sub.Recv()
	require.True(t, ok)
	require.Equal(t, "e1", ev.(ExecutionStarted).ExecutionID)
}

func TestPublishOverflowMarksLagged(t *testing.T) {
	bus := NewWithCapacity(1)
	sub := bus.Subscribe()

	bus.Publish(NewExecutionStarted("e1", "a1"))
	bus.Publish(NewExecutionStarted("e1", "a1")) // dropped, inbox full

	lagged, dropped := sub.Lagged()
	require.True(t, lagged)
	require.Equal(t, 1, dropped)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	_, ok := sub.Recv()
	require.False(t, ok)
}
