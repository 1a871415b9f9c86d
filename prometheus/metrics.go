package prometheus

import (
	"time"

	"rental-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Entity operation metrics, labelled by entity and operation
	EntityOperationsCounter *prometheus.CounterVec

	// Bulk billing outcomes
	BulkPaymentsCounter *prometheus.CounterVec

	// Room occupancy
	RoomStatusGauge *prometheus.GaugeVec

	// Access gate rejections
	AccessDeniedCounter *prometheus.CounterVec

	// Discord deliveries
	NotificationsCounter *prometheus.CounterVec

	// Backup runs
	BackupOperationsCounter *prometheus.CounterVec
)

func init() {
	// unregistered defaults so recording is safe before InitMetrics
	Register("rental_service", prometheus.NewRegistry())
}

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	Register(config.Metrics.Prefix, prometheus.DefaultRegisterer)
}

// Register builds every collector under prefix and registers it with reg
func Register(prefix string, reg prometheus.Registerer) {
	factory := promauto.With(reg)

	HttpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	DbOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	EntityOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_operations_total",
			Help: "Total number of entity operations",
		},
		[]string{"entity", "operation"},
	)

	BulkPaymentsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_bulk_payments_total",
			Help: "Payments processed by bulk creation, by outcome",
		},
		[]string{"outcome"},
	)

	RoomStatusGauge = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_rooms",
			Help: "Current number of rooms per status",
		},
		[]string{"status"},
	)

	AccessDeniedCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_access_denied_total",
			Help: "Requests rejected by the maintenance or backup window",
		},
		[]string{"window"},
	)

	NotificationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_notifications_total",
			Help: "Discord notifications sent, by kind and result",
		},
		[]string{"kind", "result"},
	)

	BackupOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_backup_operations_total",
			Help: "Backup operations, by operation and result",
		},
		[]string{"operation", "result"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordOperation increments the counter for an entity operation
func RecordOperation(entity, operation string) {
	EntityOperationsCounter.WithLabelValues(entity, operation).Inc()
}

// RecordBulkPayments adds the outcome of one bulk creation run
func RecordBulkPayments(created, failed int) {
	BulkPaymentsCounter.WithLabelValues("created").Add(float64(created))
	BulkPaymentsCounter.WithLabelValues("failed").Add(float64(failed))
}

// SetRoomStatus updates the room occupancy gauge
func SetRoomStatus(status string, count int64) {
	RoomStatusGauge.WithLabelValues(status).Set(float64(count))
}

// RecordAccessDenied increments the counter for gate rejections
func RecordAccessDenied(window string) {
	AccessDeniedCounter.WithLabelValues(window).Inc()
}

// RecordNotification increments the counter for Discord deliveries
func RecordNotification(kind string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	NotificationsCounter.WithLabelValues(kind, result).Inc()
}

// RecordBackupOperation increments the counter for backup operations
func RecordBackupOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	BackupOperationsCounter.WithLabelValues(operation, result).Inc()
}
