package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TaggingWebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagging_webhooks_total",
			Help: "Total number of product webhooks processed by outcome (count)",
		},
		[]string{"outcome"},
	)

	TaggingProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagging_processing_duration_ms",
			Help:    "Duration of the rule pipeline per webhook in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"outcome"},
	)

	TaggingRuleMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagging_rule_matches_total",
			Help: "Total number of rule matches by field kind (count)",
		},
		[]string{"field"},
	)

	TagMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tag_mutations_total",
			Help: "Total number of product tag mutation calls by status (count)",
		},
		[]string{"status"},
	)

	TagMutationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tag_mutation_duration_ms",
			Help:    "Duration of Admin API tag mutation calls in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	MutationUserErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tag_mutation_user_errors_total",
			Help: "Total number of field-level errors reported by the Admin API (count)",
		},
	)

	RuleCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_cache_requests_total",
			Help: "Total number of rule cache lookups by result (count)",
		},
		[]string{"result"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of message processing retries (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages routed to the dead-letter topic (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	RuleStoreQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_store_queries_total",
			Help: "Total number of rule store queries (count)",
		},
		[]string{"operation", "status"},
	)

	RuleStoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rule_store_query_duration_ms",
			Help:    "Duration of rule store queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"operation"},
	)
)

func RegisterTaggingMetrics() {
	prometheus.MustRegister(TaggingWebhooksTotal)
	prometheus.MustRegister(TaggingProcessingDuration)
	prometheus.MustRegister(TaggingRuleMatchesTotal)
	prometheus.MustRegister(TagMutationsTotal)
	prometheus.MustRegister(TagMutationDuration)
	prometheus.MustRegister(MutationUserErrorsTotal)
	prometheus.MustRegister(RuleCacheRequestsTotal)
	prometheus.MustRegister(RuleStoreQueriesTotal)
	prometheus.MustRegister(RuleStoreQueryDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(RuleStoreQueriesTotal)
	prometheus.MustRegister(RuleStoreQueryDuration)
}

func ObserveTaggingDuration(duration time.Duration, outcome string) {
	TaggingProcessingDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func ObserveMutationDuration(duration time.Duration, status string) {
	TagMutationDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}
