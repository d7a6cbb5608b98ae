package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveScheduleSetsGauges(t *testing.T) {
	r := New()
	r.ObserveSchedule(12.5, 3, 7, 4)

	assert.Equal(t, 12.5, testutil.ToFloat64(r.makespan))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.staticEnergy))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.dynamicEnergy))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.totalEnergy))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.activeTasks))
}

func TestRecordInvocationAndInterruptIncrementPerAlgorithm(t *testing.T) {
	r := New()
	r.RecordInvocation("heft")
	r.RecordInvocation("heft")
	r.RecordInvocation("genetic")
	r.RecordInterrupt("genetic")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.invocations.WithLabelValues("heft")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.invocations.WithLabelValues("genetic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.interrupts.WithLabelValues("genetic")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.interrupts.WithLabelValues("heft")))
}

func TestHandlerServesMetrics(t *testing.T) {
	r := New()
	r.ObserveSchedule(1, 1, 1, 1)
	assert.NotNil(t, r.Handler())
}
