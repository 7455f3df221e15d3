package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var SensorTypesConverted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "eds_sensors_converted_total",
	Help: "The total number of sensor types converted",
})

var SensorTypesRejected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "eds_sensors_rejected_total",
	Help: "The total number of sensor types rejected",
})

var EntitiesGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "eds_sensors_entities_total",
	Help: "The total number of entities generated",
})

var ConversionWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eds_sensors_warnings_total",
	Help: "The total number of conversion warnings by kind",
}, []string{"kind"})

var ConversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "eds_sensors_conversion_duration_seconds",
	Help:    "The duration of converting a single sensor type",
	Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
})

var FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "eds_sensors_fetch_duration_seconds",
	Help:    "The duration of fetching a schema document",
	Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
})

// ConversionStats contains the conversion metrics
type ConversionStats struct {
	Converted   float64 `json:"converted"`
	Rejected    float64 `json:"rejected"`
	Entities    float64 `json:"entities"`
	Warnings    float64 `json:"warnings"`
	Conversions float64 `json:"conversions"`
	Fetches     float64 `json:"fetches"`
}

// collect calls the function for each metric associated with the Collector
func collect(col prometheus.Collector, do func(*dto.Metric)) {
	c := make(chan prometheus.Metric)
	go func(c chan prometheus.Metric) {
		col.Collect(c)
		close(c)
	}(c)
	for x := range c { // eg range across distinct label vector values
		m := dto.Metric{}
		_ = x.Write(&m)
		do(&m)
	}
}

// getMetricValue returns the sum of the Counter metrics associated with the Collector
// e.g. the metric for a non-vector, or the sum of the metrics for vector labels.
// If the metric is a Histogram then number of samples is used.
func getMetricValue(col prometheus.Collector) float64 {
	var total float64
	collect(col, func(m *dto.Metric) {
		if h := m.GetHistogram(); h != nil {
			total += float64(h.GetSampleCount())
		} else {
			total += m.GetCounter().GetValue()
		}
	})
	return total
}

// GetConversionStats returns a snapshot of the conversion metrics
func GetConversionStats() *ConversionStats {
	return &ConversionStats{
		Converted:   getMetricValue(SensorTypesConverted),
		Rejected:    getMetricValue(SensorTypesRejected),
		Entities:    getMetricValue(EntitiesGenerated),
		Warnings:    getMetricValue(ConversionWarnings),
		Conversions: getMetricValue(ConversionDuration),
		Fetches:     getMetricValue(FetchDuration),
	}
}
