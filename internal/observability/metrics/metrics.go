package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievances_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grievances_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	grievanceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievances_operations_total",
		Help: "Count of grievance mutations by operation and result",
	}, []string{"operation", "result"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievances_login_attempts_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievances_registrations_total",
		Help: "Count of registration attempts by result",
	}, []string{"result"})

	imageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievances_image_uploads_total",
		Help: "Count of stored images by kind and result",
	}, []string{"kind", "result"})

	imageUploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grievances_image_upload_duration_seconds",
		Help:    "Duration of image processing and storage",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	cacheEntriesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grievances_cache_entries_purged_total",
		Help: "Count of expired in-memory session and flash entries removed",
	})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grievances_cache_entries",
		Help: "In-memory session and flash entries left after the last purge",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveGrievanceOperation counts a create, update or delete with its result
func ObserveGrievanceOperation(operation, result string) {
	grievanceOperations.WithLabelValues(operation, result).Inc()
}

// ObserveLogin counts a login attempt
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// ObserveRegistration counts a registration attempt
func ObserveRegistration(result string) {
	registrations.WithLabelValues(result).Inc()
}

// ObserveImageUpload records an image store attempt
func ObserveImageUpload(kind, result string, duration time.Duration) {
	imageUploads.WithLabelValues(kind, result).Inc()
	imageUploadDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveCachePurge adds purged entries and records how many remain
func ObserveCachePurge(purged, remaining int) {
	if purged > 0 {
		cacheEntriesPurged.Add(float64(purged))
	}
	cacheEntries.Set(float64(remaining))
}
