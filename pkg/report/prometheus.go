package report

import (
	"fmt"
	"io"

	"github.com/mchmarny/pulse/pkg/vitality"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const (
	metricScore      = "pulse_vitality_score"
	metricRiskRatio  = "pulse_risk_ratio"
	metricFlag       = "pulse_flag"
	metricConfidence = "pulse_confidence_level"
	metricTimestamp  = "pulse_evaluated_timestamp_seconds"

	labelRepo = "repo"
	labelFlag = "flag"
)

var confidenceLevels = map[vitality.Confidence]float64{
	vitality.ConfidenceLow:    0,
	vitality.ConfidenceMedium: 1,
	vitality.ConfidenceHigh:   2,
}

// WritePrometheus writes the reports in the Prometheus text exposition
// format, e.g. for a node exporter textfile collector. Reports without an
// assessment are skipped.
func WritePrometheus(w io.Writer, reports []*Report) error {
	score := newGauge(metricScore, "Repository vitality score from 0 to 100.")
	risk := newGauge(metricRiskRatio, "Share of sampled commits by the most active author, in percent.")
	flag := newGauge(metricFlag, "Risk flag raised for the repository (1) or not (0).")
	conf := newGauge(metricConfidence, "Confidence of the score: 0 low, 1 medium, 2 high.")
	ts := newGauge(metricTimestamp, "Unix time the repository was evaluated.")

	for _, r := range reports {
		if !r.OK() {
			continue
		}
		a := r.Assessment
		repo := r.Repo.FullName

		score.Metric = append(score.Metric, gaugeValue(float64(a.Score), labelRepo, repo))
		risk.Metric = append(risk.Metric, gaugeValue(float64(a.RiskRatio), labelRepo, repo))
		conf.Metric = append(conf.Metric, gaugeValue(confidenceLevels[a.Confidence], labelRepo, repo))
		ts.Metric = append(ts.Metric, gaugeValue(float64(r.GeneratedAt.Unix()), labelRepo, repo))

		for _, f := range vitality.AllFlags() {
			var v float64
			if a.Flags.Has(f) {
				v = 1
			}
			flag.Metric = append(flag.Metric, gaugeValue(v, labelFlag, string(f), labelRepo, repo))
		}
	}

	for _, mf := range []*dto.MetricFamily{score, risk, flag, conf, ts} {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func newGauge(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

// gaugeValue builds a gauge sample; labels are name/value pairs.
func gaugeValue(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}
