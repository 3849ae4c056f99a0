package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Messaging holds the provider selection and carrier credentials shared by
// every binary that sends messages.
type Messaging struct {
	Provider string `envconfig:"MESSAGING_PROVIDER" default:"twilio"`

	// Twilio
	TwilioAccountSID     string        `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string        `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber    string        `envconfig:"TWILIO_PHONE_NUMBER"`
	TwilioWhatsAppNumber string        `envconfig:"TWILIO_WHATSAPP_NUMBER"`
	TwilioBaseURL        string        `envconfig:"TWILIO_BASE_URL" default:"https://api.twilio.com"`
	TwilioSendTimeout    time.Duration `envconfig:"TWILIO_SEND_TIMEOUT" default:"6s"`
	TwilioRPSPerPod      float64       `envconfig:"TWILIO_RPS_PER_POD" default:"5"`
	TwilioBurst          int           `envconfig:"TWILIO_BURST" default:"10"`

	// Where the carrier posts delivery status callbacks.
	StatusCallbackURL string `envconfig:"TWILIO_WEBHOOK_URL"`

	// WhatsApp template content SIDs, created in the Twilio console once
	// Meta approves each template. Session templates need none.
	TemplateOTP            string `envconfig:"TWILIO_TEMPLATE_OTP"`
	TemplateWelcome        string `envconfig:"TWILIO_TEMPLATE_WELCOME"`
	TemplateVisit          string `envconfig:"TWILIO_TEMPLATE_VISIT"`
	TemplateRewardEarned   string `envconfig:"TWILIO_TEMPLATE_REWARD_EARNED"`
	TemplateRewardRedeemed string `envconfig:"TWILIO_TEMPLATE_REWARD_REDEEMED"`
	TemplateMarketing      string `envconfig:"TWILIO_TEMPLATE_MARKETING"`

	// Salt for the one-way phone hashes stored in the ledger.
	PhoneHashSecret string `envconfig:"PHONE_HASH_SECRET" required:"true"`
}

type APIConfig struct {
	DBDSN         string `envconfig:"DB_DSN" required:"true"`
	Port          string `envconfig:"PORT" default:"8080"`
	MetricsPort   string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"json"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"https://loyeo.fr"`

	Messaging Messaging

	// AWS / SQS (campaign fan-out queue)
	AWSRegion          string `envconfig:"AWS_REGION" required:"true"`
	SQSQueueURL        string `envconfig:"SQS_QUEUE_URL" required:"true"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
}

type WorkerConfig struct {
	DBDSN       string `envconfig:"DB_DSN" required:"true"`
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	Messaging Messaging

	// AWS / SQS
	AWSRegion          string `envconfig:"AWS_REGION" required:"true"`
	SQSQueueURL        string `envconfig:"SQS_QUEUE_URL" required:"true"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
	SQSWaitTime        int32  `envconfig:"SQS_WAIT_TIME" default:"20"`
	SQSMaxMsgs         int32  `envconfig:"SQS_MAX_MSGS" default:"10"`
	SQSVizTimeout      int32  `envconfig:"SQS_VISIBILITY_TIMEOUT" default:"60"`
	WorkerConcurrency  int    `envconfig:"WORKER_CONCURRENCY" default:"20"`
}

type WebhookConfig struct {
	DBDSN         string `envconfig:"DB_DSN" required:"true"`
	Port          string `envconfig:"PORT" default:"8080"`
	MetricsPort   string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"json"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"https://loyeo.fr"`

	// Webhook signature verification
	TwilioAuthToken string `envconfig:"TWILIO_AUTH_TOKEN" required:"true"`
	// Must match the EXACT URL configured in the Twilio console; the
	// signature covers it.
	PublicWebhookURL string `envconfig:"PUBLIC_WEBHOOK_URL" required:"true"`

	// Optional redis replay-dedup for webhook deliveries.
	RedisEnabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisTTL      time.Duration `envconfig:"REDIS_TTL" default:"24h"`
}

func LoadAPI() APIConfig {
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWorker() WorkerConfig {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWebhook() WebhookConfig {
	var cfg WebhookConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
