package metrics

import (
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// WriteText renders the collector's counters in Prometheus text
// exposition format. Statuses are emitted in sorted order so scrapes of
// an unchanged collector are byte-identical.
func (c *Collector) WriteText(w io.Writer) error {
	snap := c.snapshot()

	statuses := make([]string, 0, len(snap.runsTotal))
	for status := range snap.runsTotal {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	runMetrics := make([]*dto.Metric, 0, len(statuses))
	for _, status := range statuses {
		runMetrics = append(runMetrics, &dto.Metric{
			Label: []*dto.LabelPair{{
				Name:  proto.String("status"),
				Value: proto.String(status),
			}},
			Counter: &dto.Counter{Value: proto.Float64(snap.runsTotal[status])},
		})
	}

	families := []*dto.MetricFamily{
		{
			Name:   proto.String("valuation_runs_total"),
			Help:   proto.String("Finished valuation runs by terminal status."),
			Type:   dto.MetricType_COUNTER.Enum(),
			Metric: runMetrics,
		},
		{
			Name: proto.String("valuation_scenarios_evaluated_total"),
			Help: proto.String("Total scenarios evaluated across all runs."),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{
				Counter: &dto.Counter{Value: proto.Float64(snap.scenariosTotal)},
			}},
		},
		{
			Name: proto.String("valuation_run_duration_seconds"),
			Help: proto.String("Wall duration of finished valuation runs."),
			Type: dto.MetricType_SUMMARY.Enum(),
			Metric: []*dto.Metric{{
				Summary: &dto.Summary{
					SampleCount: proto.Uint64(snap.runDurationSamples),
					SampleSum:   proto.Float64(snap.runDurationSum),
				},
			}},
		},
	}

	for _, family := range families {
		if len(family.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("write metric family %s: %w", family.GetName(), err)
		}
	}
	return nil
}
