package analytics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	llmLatencyFamily  = "academy_chatbot_llm_latency_seconds"
	rateLimitedFamily = "academy_http_rate_limited_total"
)

// RuntimeSnapshot reports in-process counters since the last restart.
type RuntimeSnapshot struct {
	LLM         LLMLatency         `json:"llm"`
	RateLimited map[string]float64 `json:"rate_limited"`
}

type LLMLatency struct {
	Calls int64   `json:"calls"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// SnapshotRuntime reads the chatbot LLM latency histogram (successful calls
// only, merged across providers) and the per-scope rate-limit counters.
func SnapshotRuntime(g prometheus.Gatherer) RuntimeSnapshot {
	out := RuntimeSnapshot{RateLimited: map[string]float64{}}
	if g == nil {
		return out
	}
	mfs, err := g.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		switch mf.GetName() {
		case llmLatencyFamily:
			out.LLM = llmLatency(mf)
		case rateLimitedFamily:
			for _, m := range mf.GetMetric() {
				out.RateLimited[labelValue(m, "scope")] += m.GetCounter().GetValue()
			}
		}
	}
	return out
}

func llmLatency(mf *dto.MetricFamily) LLMLatency {
	cumulative := map[float64]uint64{}
	var total uint64
	for _, m := range mf.GetMetric() {
		if labelValue(m, "status") != "ok" || m.GetHistogram() == nil {
			continue
		}
		h := m.GetHistogram()
		total += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			cumulative[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if total == 0 {
		return LLMLatency{}
	}
	uppers := make([]float64, 0, len(cumulative)+1)
	for u := range cumulative {
		uppers = append(uppers, u)
	}
	// The +Inf bucket is implicit in the exposition model.
	if _, ok := cumulative[math.Inf(1)]; !ok {
		cumulative[math.Inf(1)] = total
		uppers = append(uppers, math.Inf(1))
	}
	sort.Float64s(uppers)
	return LLMLatency{
		Calls: int64(total),
		P50Ms: quantile(0.50, total, uppers, cumulative) * 1000,
		P95Ms: quantile(0.95, total, uppers, cumulative) * 1000,
	}
}

// quantile interpolates linearly inside the bucket holding the target rank.
// Ranks in the +Inf bucket return the last finite bound.
func quantile(q float64, total uint64, uppers []float64, cumulative map[float64]uint64) float64 {
	target := q * float64(total)
	var prevUpper, prevCum float64
	for _, upper := range uppers {
		cum := float64(cumulative[upper])
		if cum < target {
			prevUpper, prevCum = upper, cum
			continue
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}
		inBucket := cum - prevCum
		if inBucket <= 0 {
			return upper
		}
		return prevUpper + (target-prevCum)/inBucket*(upper-prevUpper)
	}
	return prevUpper
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
