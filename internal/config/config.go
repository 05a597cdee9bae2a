package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Payment gateway backends.
const (
	GatewaySimulator = "simulator"
	GatewayDaraja    = "daraja"
)

// OCR backends.
const (
	OCRBackendProxy  = "proxy"
	OCRBackendVision = "vision"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	SessionSecret   string
	SessionTTL      time.Duration
	FreeCredits     int64
	CreditPrice     int64
	ErrorLogSize    int
	ErrorLogUsers   int
	MaxUploadBytes  int64
	AllowedOrigins  []string
	ShutdownTimeout time.Duration

	Payment PaymentConfig
	OCR     OCRConfig
	LLM     LLMConfig
}

// PaymentConfig configures the push-payment gateway and its polling.
type PaymentConfig struct {
	Gateway        string
	PollInterval   time.Duration
	ClaimLease     time.Duration
	MaxAttempts    int
	WorkerPoolSize int
	PollBatchSize  int
	PendingChecks  int
	// CallbackToken is the last path segment of the gateway callback route.
	CallbackToken string
	Daraja        DarajaConfig
}

// DarajaConfig holds M-Pesa Daraja API credentials.
type DarajaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// OCRConfig selects and configures the OCR collaborator.
type OCRConfig struct {
	Backend        string
	ProxyAddress   string
	VisionAPIKey   string
	VisionEndpoint string
}

// LLMConfig configures the structured extraction model.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// ProxyConfig holds configuration of the standalone OCR proxy.
type ProxyConfig struct {
	ListenAddress   string
	AllowedOrigins  []string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	OCR             OCRConfig
}

const (
	defaultRunAddress      = ":8080"
	defaultSessionSecret   = "change-me-in-production"
	defaultSessionTTL      = 30 * 24 * time.Hour
	defaultFreeCredits     = 5
	defaultCreditPrice     = 10
	defaultErrorLogSize    = 50
	defaultErrorLogUsers   = 10000
	defaultMaxUploadBytes  = 10 << 20
	defaultAllowedOrigins  = "*"
	defaultShutdownTimeout = 10 * time.Second

	defaultGateway        = GatewaySimulator
	defaultPollInterval   = 10 * time.Second
	defaultClaimLease     = time.Minute
	defaultMaxAttempts    = 30
	defaultWorkerPoolSize = 4
	defaultPollBatchSize  = 32
	defaultPendingChecks  = 3
	defaultDarajaBaseURL  = "https://sandbox.safaricom.co.ke"

	defaultOCRBackend  = OCRBackendProxy
	defaultOCRProxy    = "http://localhost:5000"
	defaultProxyListen = ":5000"
	defaultLLMBaseURL  = "https://api.anthropic.com"
	defaultLLMModel    = "claude-sonnet-4-20250514"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

// LoadProxy parses OCR proxy configuration from flags and environment variables.
func LoadProxy() (*ProxyConfig, error) {
	return loadProxy(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:      getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:     getString(lookup, "DATABASE_URI", ""),
		SessionSecret:   getString(lookup, "SESSION_SECRET", defaultSessionSecret),
		SessionTTL:      getDuration(lookup, "SESSION_TTL", defaultSessionTTL),
		FreeCredits:     getInt64(lookup, "FREE_CREDITS", defaultFreeCredits),
		CreditPrice:     getInt64(lookup, "CREDIT_PRICE", defaultCreditPrice),
		ErrorLogSize:    getInt(lookup, "ERROR_LOG_CAPACITY", defaultErrorLogSize),
		ErrorLogUsers:   getInt(lookup, "ERROR_LOG_MAX_USERS", defaultErrorLogUsers),
		MaxUploadBytes:  getInt64(lookup, "MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		Payment: PaymentConfig{
			Gateway:        getString(lookup, "PAYMENT_GATEWAY", defaultGateway),
			PollInterval:   getDuration(lookup, "PAYMENT_POLL_INTERVAL", defaultPollInterval),
			ClaimLease:     getDuration(lookup, "PAYMENT_CLAIM_LEASE", defaultClaimLease),
			MaxAttempts:    getInt(lookup, "PAYMENT_MAX_ATTEMPTS", defaultMaxAttempts),
			WorkerPoolSize: getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
			PollBatchSize:  getInt(lookup, "POLL_BATCH_SIZE", defaultPollBatchSize),
			PendingChecks:  getInt(lookup, "SIMULATOR_PENDING_CHECKS", defaultPendingChecks),
			CallbackToken:  getString(lookup, "PAYMENT_CALLBACK_TOKEN", ""),
			Daraja: DarajaConfig{
				BaseURL:        getString(lookup, "DARAJA_BASE_URL", defaultDarajaBaseURL),
				ConsumerKey:    getString(lookup, "DARAJA_CONSUMER_KEY", ""),
				ConsumerSecret: getString(lookup, "DARAJA_CONSUMER_SECRET", ""),
				ShortCode:      getString(lookup, "DARAJA_SHORT_CODE", ""),
				Passkey:        getString(lookup, "DARAJA_PASSKEY", ""),
				CallbackURL:    getString(lookup, "DARAJA_CALLBACK_URL", ""),
			},
		},
		OCR: ocrFromEnv(lookup),
		LLM: LLMConfig{
			BaseURL: getString(lookup, "LLM_BASE_URL", defaultLLMBaseURL),
			APIKey:  getString(lookup, "LLM_API_KEY", ""),
			Model:   getString(lookup, "LLM_MODEL", defaultLLMModel),
		},
	}

	fs := flag.NewFlagSet("invoicer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		pollIntervalStr    = cfg.Payment.PollInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		originsStr         = getString(lookup, "CORS_ALLOWED_ORIGINS", defaultAllowedOrigins)
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL or SQLite DSN")
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "Secret for signing session tokens")
	fs.Int64Var(&cfg.FreeCredits, "free-credits", cfg.FreeCredits, "Credits granted to new users")
	fs.Int64Var(&cfg.CreditPrice, "credit-price", cfg.CreditPrice, "Price of one credit")
	fs.StringVar(&cfg.Payment.Gateway, "gateway", cfg.Payment.Gateway, "Payment gateway backend (simulator|daraja)")
	fs.StringVar(&pollIntervalStr, "poll-interval", pollIntervalStr, "Interval between payment status checks")
	fs.IntVar(&cfg.Payment.MaxAttempts, "max-attempts", cfg.Payment.MaxAttempts, "Status checks before a payment times out")
	fs.IntVar(&cfg.Payment.WorkerPoolSize, "worker-pool", cfg.Payment.WorkerPoolSize, "Number of concurrent payment pollers")
	fs.IntVar(&cfg.Payment.PollBatchSize, "poll-batch", cfg.Payment.PollBatchSize, "Maximum payments per polling batch")
	fs.StringVar(&cfg.OCR.Backend, "ocr", cfg.OCR.Backend, "OCR backend (proxy|vision)")
	fs.StringVar(&cfg.OCR.ProxyAddress, "ocr-proxy", cfg.OCR.ProxyAddress, "OCR proxy base URL")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&originsStr, "cors-origins", originsStr, "Comma separated list of allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.Payment.PollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("SESSION_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read session secret file: %w", err)
		}
		cfg.SessionSecret = strings.TrimSpace(string(content))
	}

	cfg.AllowedOrigins = splitList(originsStr)

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	if cfg.FreeCredits < 0 {
		cfg.FreeCredits = defaultFreeCredits
	}

	if cfg.CreditPrice <= 0 {
		cfg.CreditPrice = defaultCreditPrice
	}

	if cfg.ErrorLogSize <= 0 {
		cfg.ErrorLogSize = defaultErrorLogSize
	}

	if cfg.ErrorLogUsers <= 0 {
		cfg.ErrorLogUsers = defaultErrorLogUsers
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.Payment.PollInterval <= 0 {
		cfg.Payment.PollInterval = defaultPollInterval
	}

	if cfg.Payment.ClaimLease <= 0 {
		cfg.Payment.ClaimLease = defaultClaimLease
	}

	if cfg.Payment.MaxAttempts <= 0 {
		cfg.Payment.MaxAttempts = defaultMaxAttempts
	}

	if cfg.Payment.WorkerPoolSize <= 0 {
		cfg.Payment.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.Payment.PollBatchSize <= 0 {
		cfg.Payment.PollBatchSize = defaultPollBatchSize
	}

	if cfg.Payment.PendingChecks < 0 {
		cfg.Payment.PendingChecks = defaultPendingChecks
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	switch cfg.Payment.Gateway {
	case GatewaySimulator:
	case GatewayDaraja:
		d := cfg.Payment.Daraja
		if d.ConsumerKey == "" || d.ConsumerSecret == "" || d.ShortCode == "" || d.Passkey == "" || d.CallbackURL == "" {
			return nil, fmt.Errorf("daraja gateway requires consumer key, consumer secret, short code, passkey and callback url")
		}
		token := cfg.Payment.CallbackToken
		if token == "" || !strings.HasSuffix(d.CallbackURL, "/"+token) {
			return nil, fmt.Errorf("daraja callback url must end with the payment callback token")
		}
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.Payment.Gateway)
	}

	if err := validateOCR(cfg.OCR); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadProxy(args []string, lookup envLookup) (*ProxyConfig, error) {
	cfg := &ProxyConfig{
		ListenAddress:   getString(lookup, "OCR_PROXY_LISTEN", defaultProxyListen),
		MaxUploadBytes:  getInt64(lookup, "MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		OCR:             ocrFromEnv(lookup),
	}
	cfg.OCR.Backend = OCRBackendVision

	fs := flag.NewFlagSet("ocrproxy", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	originsStr := getString(lookup, "CORS_ALLOWED_ORIGINS", defaultAllowedOrigins)
	fs.StringVar(&cfg.ListenAddress, "a", cfg.ListenAddress, "OCR proxy listen address")
	fs.StringVar(&cfg.OCR.VisionAPIKey, "vision-key", cfg.OCR.VisionAPIKey, "Google Cloud Vision API key")
	fs.StringVar(&cfg.OCR.VisionEndpoint, "vision-endpoint", cfg.OCR.VisionEndpoint, "Google Cloud Vision endpoint override")
	fs.StringVar(&originsStr, "cors-origins", originsStr, "Comma separated list of allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	cfg.AllowedOrigins = splitList(originsStr)

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultProxyListen
	}

	return cfg, nil
}

func ocrFromEnv(lookup envLookup) OCRConfig {
	return OCRConfig{
		Backend:        getString(lookup, "OCR_BACKEND", defaultOCRBackend),
		ProxyAddress:   getString(lookup, "OCR_PROXY_ADDRESS", defaultOCRProxy),
		VisionAPIKey:   getString(lookup, "VISION_API_KEY", ""),
		VisionEndpoint: getString(lookup, "VISION_ENDPOINT", ""),
	}
}

func validateOCR(cfg OCRConfig) error {
	switch cfg.Backend {
	case OCRBackendProxy:
		if cfg.ProxyAddress == "" {
			return fmt.Errorf("ocr proxy address must be provided")
		}
	case OCRBackendVision:
	default:
		return fmt.Errorf("unknown ocr backend %q", cfg.Backend)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64(lookup envLookup, key string, def int64) int64 {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
