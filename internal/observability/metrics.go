package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loyeo_api_requests_total", Help: "API requests"},
		[]string{"endpoint", "status"},
	)
	Sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loyeo_sends_total", Help: "Send outcomes per channel"},
		[]string{"channel", "result"},
	)
	Fallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "loyeo_sms_fallback_total", Help: "OTP sends that fell back to SMS"},
	)
	SendCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loyeo_send_cost_cents_total", Help: "Estimated send cost in EUR cents"},
		[]string{"channel"},
	)
	CarrierLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "loyeo_carrier_send_latency_seconds", Help: "Carrier send latency"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loyeo_webhook_events_total", Help: "Delivery status webhook events"},
		[]string{"status"},
	)
	Enqueues = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loyeo_enqueue_total", Help: "Campaign job enqueue results"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, Sends, Fallbacks, SendCost, CarrierLatency, WebhookEvents, Enqueues)
}
