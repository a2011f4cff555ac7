package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标管理器
// 使用独立 Registry，方法对 nil 接收者安全（未启用指标时直接传 nil）
type Metrics struct {
	registry *prometheus.Registry

	// 业务指标
	geofenceTotal      *prometheus.CounterVec
	fallDecisionsTotal *prometheus.CounterVec
	casesTotal         *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New 创建指标管理器
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		geofenceTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carezone_geofence_classifications_total",
				Help: "Location updates by geofence status",
			},
			[]string{"status"},
		),

		fallDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carezone_fall_decisions_total",
				Help: "Fall throttle decisions (notified, suppressed, non_fall)",
			},
			[]string{"decision"},
		),

		casesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carezone_case_transitions_total",
				Help: "Extended help case transitions",
			},
			[]string{"transition"},
		),

		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carezone_notifications_total",
				Help: "Outbound notifications by target and result",
			},
			[]string{"target", "result"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carezone_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carezone_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 底层 Registry（测试读取指标用）
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordGeofence 记录一次位置分类
func (m *Metrics) RecordGeofence(status string) {
	if m == nil {
		return
	}
	m.geofenceTotal.WithLabelValues(status).Inc()
}

// RecordFallDecision 记录一次跌倒节流决策
func (m *Metrics) RecordFallDecision(decision string) {
	if m == nil {
		return
	}
	m.fallDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordCaseTransition 记录案件状态迁移
func (m *Metrics) RecordCaseTransition(transition string) {
	if m == nil {
		return
	}
	m.casesTotal.WithLabelValues(transition).Inc()
}

// RecordNotification 记录一次通知投递结果
func (m *Metrics) RecordNotification(target, result string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(target, result).Inc()
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
