package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/ironclad/pkg/condition"
)

func TestRecorder_CollectsInOrder(t *testing.T) {
	r := &Recorder{}

	r.Observe(condition.CheckEvent{Unit: "u", Index: 0, Outcome: condition.OutcomePass})
	r.Observe(condition.CheckEvent{Unit: "u", Index: 1, Outcome: condition.OutcomeFail})

	events := r.Events()
	assert.Len(t, events, 2)
	assert.Equal(t, 0, events[0].Index)
	assert.Equal(t, 1, events[1].Index)
	assert.Equal(t, 2, r.Len())
}

func TestRecorder_EventsReturnsCopy(t *testing.T) {
	r := &Recorder{}
	r.Observe(condition.CheckEvent{Unit: "u"})

	events := r.Events()
	events[0].Unit = "mutated"

	assert.Equal(t, "u", r.Events()[0].Unit)
}

func TestRecorder_Reset(t *testing.T) {
	r := &Recorder{}
	r.Observe(condition.CheckEvent{Unit: "u"})
	r.Reset()
	assert.Zero(t, r.Len())
}
