package internaldefs

import (
	"testing"

	"github.com/MrEthical07/qmsauth"
)

func TestEveryCounterBelongsToOneFamily(t *testing.T) {
	seen := map[qmsauth.MetricID]string{}
	names := map[string]bool{}
	for _, f := range CounterFamilies {
		if names[f.Name] {
			t.Fatalf("duplicate family %s", f.Name)
		}
		names[f.Name] = true
		values := map[string]bool{}
		for _, m := range f.Members {
			if prev, ok := seen[m.ID]; ok {
				t.Fatalf("metric %d exported by %s and %s", m.ID, prev, f.Name)
			}
			if values[m.Value] {
				t.Fatalf("%s has two %s=%q series", f.Name, f.Label, m.Value)
			}
			seen[m.ID] = f.Name
			values[m.Value] = true
		}
	}
	for id := qmsauth.MetricID(0); id < qmsauth.MetricRequestLatency; id++ {
		if _, ok := seen[id]; !ok {
			t.Fatalf("counter %d is not exported", id)
		}
	}
	if _, ok := seen[Latency.ID]; ok {
		t.Fatal("histogram exported as a counter")
	}
}

func TestPhaseLabels(t *testing.T) {
	if got := PhaseLabel(qmsauth.PhaseRefreshingToken); got != "refreshing_token" {
		t.Fatalf("label = %q", got)
	}
	if len(Phases) != 6 {
		t.Fatalf("phases = %d", len(Phases))
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("cumulative = %v, want %v", got, want)
	}
	if len(HistogramBounds) != len(got) {
		t.Fatal("bucket bounds out of sync with bucket count")
	}
}
