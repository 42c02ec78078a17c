package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/sdrtrunk-go/decodercore/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	if c.SquelchState == nil {
		t.Error("SquelchState is nil")
	}
	if c.SquelchTransitionsTotal == nil {
		t.Error("SquelchTransitionsTotal is nil")
	}
	if c.BufferPoolOutstanding == nil {
		t.Error("BufferPoolOutstanding is nil")
	}
	if c.CallEventsTotal == nil {
		t.Error("CallEventsTotal is nil")
	}
	if c.TrafficAllocationsTotal == nil {
		t.Error("TrafficAllocationsTotal is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestSquelchMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SetSquelchState("ch0", 2)
	if v := gaugeValue(t, c.SquelchState, "ch0"); v != 2 {
		t.Errorf("SquelchState = %v, want 2", v)
	}

	c.IncSquelchTransition("ch0", "UNMUTE")
	c.IncSquelchTransition("ch0", "UNMUTE")
	if v := counterValue(t, c.SquelchTransitionsTotal, "ch0", "UNMUTE"); v != 2 {
		t.Errorf("SquelchTransitionsTotal = %v, want 2", v)
	}
}

func TestBufferPoolOutstanding(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SetBufferPoolOutstanding("complex", 5)
	if v := gaugeValue(t, c.BufferPoolOutstanding, "complex"); v != 5 {
		t.Errorf("BufferPoolOutstanding = %v, want 5", v)
	}

	c.SetBufferPoolOutstanding("complex", 3)
	if v := gaugeValue(t, c.BufferPoolOutstanding, "complex"); v != 3 {
		t.Errorf("BufferPoolOutstanding after re-set = %v, want 3", v)
	}
}

func TestCallAndAllocationCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncCallEvent("CALL")
	c.IncCallEvent("CALL")
	c.IncCallEvent("REGISTER")

	if v := counterValue(t, c.CallEventsTotal, "CALL"); v != 2 {
		t.Errorf("CallEventsTotal[CALL] = %v, want 2", v)
	}
	if v := counterValue(t, c.CallEventsTotal, "REGISTER"); v != 1 {
		t.Errorf("CallEventsTotal[REGISTER] = %v, want 1", v)
	}

	c.IncTrafficAllocation()
	c.IncTrafficAllocation()

	m := &dto.Metric{}
	if err := c.TrafficAllocationsTotal.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("TrafficAllocationsTotal = %v, want 2", got)
	}
}

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
