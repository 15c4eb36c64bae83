package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"
)

// Endpoint names used in metrics records.
const (
	EndpointChat       = "/chat"
	EndpointChatStream = "/chat_stream"
	EndpointEval       = "/eval"
	EndpointMCP        = "mcp:ask"
	EndpointCLI        = "cli:ask"
)

// MetricsRecord is one line of the append-only request log.
// The JSON field names are a persisted contract read by dashboards.
type MetricsRecord struct {
	Timestamp            UnixTime `json:"ts"`
	Endpoint             string   `json:"endpoint"`
	SessionID            string   `json:"session_id"`
	Question             string   `json:"question"`
	AnswerLen            int      `json:"answer_len"`
	ContextLen           int      `json:"context_len"`
	InputTokensEst       int      `json:"input_tokens_est"`
	OutputTokensEst      int      `json:"output_tokens_est"`
	CostEstimate         float64  `json:"cost_estimate"`
	TotalLatencySec      float64  `json:"total_latency_sec"`
	FirstTokenLatencySec *float64 `json:"first_token_latency_sec"`

	// RetrievalState records how the context was chosen. Optional extra field.
	RetrievalState RetrievalState `json:"retrieval_state,omitempty"`
}

// UnixTime is a timestamp encoded in JSON as fractional Unix seconds.
type UnixTime struct {
	time.Time
}

// Now returns the current time as a UnixTime.
func Now() UnixTime {
	return UnixTime{Time: time.Now()}
}

// MarshalJSON encodes the time as seconds since the epoch.
func (t UnixTime) MarshalJSON() ([]byte, error) {
	secs := float64(t.UnixNano()) / float64(time.Second)
	return []byte(strconv.FormatFloat(secs, 'f', 6, 64)), nil
}

// UnmarshalJSON accepts fractional Unix seconds or an RFC 3339 string.
func (t *UnixTime) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		whole, frac := math.Modf(secs)
		t.Time = time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Pricing holds per-1000-token rates used for cost estimates.
type Pricing struct {
	CostPer1KInput  float64
	CostPer1KOutput float64
}

// DefaultPricing returns the gpt-4.1-mini era rates.
func DefaultPricing() Pricing {
	return Pricing{
		CostPer1KInput:  0.00015,
		CostPer1KOutput: 0.00060,
	}
}

// Cost estimates the price of a request from word-count token estimates.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*p.CostPer1KInput + float64(outputTokens)/1000*p.CostPer1KOutput
}

// MetricsSummary aggregates the metrics log for dashboards.
type MetricsSummary struct {
	TotalRequests int `json:"total_requests"`

	// AvgLatencySec is the mean total latency over all records.
	AvgLatencySec float64 `json:"avg_latency_sec"`

	// AvgFirstTokenLatencySec averages only records with a first-token latency.
	// Nil when no record has one.
	AvgFirstTokenLatencySec *float64 `json:"avg_first_token_latency_sec"`

	TotalCost float64 `json:"total_cost"`

	// Recent holds the newest records first.
	Recent []MetricsRecord `json:"recent"`
}

// Summarise builds a MetricsSummary keeping at most limit recent records.
// Records may arrive in any order.
func Summarise(records []MetricsRecord, limit int) MetricsSummary {
	summary := MetricsSummary{TotalRequests: len(records)}
	if len(records) == 0 {
		summary.Recent = []MetricsRecord{}
		return summary
	}

	var totalLatency, totalFirst float64
	var firstCount int
	for _, r := range records {
		totalLatency += r.TotalLatencySec
		summary.TotalCost += r.CostEstimate
		if r.FirstTokenLatencySec != nil {
			totalFirst += *r.FirstTokenLatencySec
			firstCount++
		}
	}
	summary.AvgLatencySec = totalLatency / float64(len(records))
	if firstCount > 0 {
		avg := totalFirst / float64(firstCount)
		summary.AvgFirstTokenLatencySec = &avg
	}

	sorted := make([]MetricsRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp.Time)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	summary.Recent = sorted
	return summary
}
