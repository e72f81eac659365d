package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rasad8686/agentcore/orchestrator"
	"github.com/rasad8686/agentcore/workflow"
)

func TestEventBusDeliversInSubscriptionOrder(t *testing.T) {
	t.Parallel()
	bus := orchestrator.NewEventBus(nil)

	var order []int
	bus.On(workflow.EventStepStart, func(ev workflow.Event) { order = append(order, 1) })
	bus.On(workflow.EventStepStart, func(ev workflow.Event) { order = append(order, 2) })
	bus.On(workflow.EventStepComplete, func(ev workflow.Event) { order = append(order, 99) })

	bus.Emit(workflow.Event{Type: workflow.EventStepStart})
	assert.Equal(t, []int{1, 2}, order)
}

func TestEventBusIsolatesPanickingHandlers(t *testing.T) {
	t.Parallel()
	bus := orchestrator.NewEventBus(nil)

	delivered := false
	bus.On(workflow.EventStepFailed, func(ev workflow.Event) { panic("handler bug") })
	bus.On(workflow.EventStepFailed, func(ev workflow.Event) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Emit(workflow.Event{Type: workflow.EventStepFailed})
	})
	assert.True(t, delivered)
}

func TestEventBusIgnoresUnsubscribedTypes(t *testing.T) {
	t.Parallel()
	bus := orchestrator.NewEventBus(nil)
	assert.NotPanics(t, func() {
		bus.Emit(workflow.Event{Type: workflow.EventExecutionError})
	})
}
