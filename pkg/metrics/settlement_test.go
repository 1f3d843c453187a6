package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveOutcomeCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.ObserveOutcome(OutcomeSettled, 20*time.Millisecond)
	m.ObserveOutcome(OutcomeSettled, 10*time.Millisecond)
	m.ObserveOutcome(OutcomeDuplicate, time.Millisecond)
	m.IncSkippedLineItem()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	counts := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "settlement_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			counts[labelValue(metric, "outcome")] = metric.GetCounter().GetValue()
		}
	}

	if counts[OutcomeSettled] != 2 {
		t.Fatalf("expected 2 settled, got %v", counts[OutcomeSettled])
	}
	if counts[OutcomeDuplicate] != 1 {
		t.Fatalf("expected 1 duplicate, got %v", counts[OutcomeDuplicate])
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewSettlementMetrics(nil)
	m.ObserveOutcome(OutcomeFailed, time.Second)
	m.IncSkippedLineItem()
}

func TestUnknownOutcomeNormalized(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)
	m.ObserveOutcome("whatever", time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "settlement_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelValue(metric, "outcome") != "unknown" {
				t.Fatalf("expected unknown label, got %q", labelValue(metric, "outcome"))
			}
		}
	}
}

func labelValue(metric *dto.Metric, name string) string {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}
