package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_chat_http_requests_total",
			Help: "Total number of HTTP requests processed by campus-chat.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "campus_chat_active_sessions",
			Help: "Number of active websocket chat sessions.",
		},
	)
	sessionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_chat_session_events_total",
			Help: "Total number of websocket session events.",
		},
		[]string{"event"},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_chat_messages_sent_total",
			Help: "Total number of chat messages sent.",
		},
		[]string{"sender_role"},
	)
	attachmentUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_chat_attachment_uploads_total",
			Help: "Total number of attachment uploads.",
		},
		[]string{"outcome"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		activeSessions,
		sessionEventsTotal,
		messagesSentTotal,
		attachmentUploadsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncActiveSessions() {
	activeSessions.Inc()
}

func DecActiveSessions() {
	activeSessions.Dec()
}

func IncSessionEvent(event string) {
	sessionEventsTotal.WithLabelValues(event).Inc()
}

func IncMessageSent(senderRole string) {
	messagesSentTotal.WithLabelValues(senderRole).Inc()
}

func IncAttachmentUpload(outcome string) {
	attachmentUploadsTotal.WithLabelValues(outcome).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
