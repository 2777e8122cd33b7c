package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	ExchangeAPIKey  string
	WebhookURL      string
	BotName         string
	APIKey          string
	CORSAllowOrigin string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Exchange
	ExchangeBaseURL string
	Pairs           []string
	TradeMode       string // "buy" or "sell"

	// Paper Trading
	PaperTradingEnabled bool
	PaperFirstBalance   float64
	PaperSecondBalance  float64
	PaperFeePercent     float64
	PaperPrice          float64

	// Trade Cycle
	TradePeriodDays    int
	MinRetrySeconds    int
	MaxRetrySeconds    int
	EnableGraceSeconds int

	// Transfers
	TransferPolicy     string // "never", "period_end", "every_nth", "every_trade"
	TransferEveryN     int
	SettleDelaySeconds int

	// API
	Port int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		ExchangeAPIKey:  envStr("EXCHANGE_API_KEY", ""),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		BotName:         envStr("BOT_NAME", "SmartTrade"),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "smart_trade"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Exchange
		ExchangeBaseURL: envStr("EXCHANGE_BASE_URL", "https://www.bitstamp.net"),
		Pairs:           envList("PAIRS", []string{"btceur"}),
		TradeMode:       strings.ToLower(envStr("TRADE_MODE", "buy")),

		// Paper Trading
		PaperTradingEnabled: envBool("PAPER_TRADING_ENABLED", true),
		PaperFirstBalance:   envFloat("PAPER_FIRST_BALANCE", 0),
		PaperSecondBalance:  envFloat("PAPER_SECOND_BALANCE", 1000),
		PaperFeePercent:     envFloat("PAPER_FEE_PERCENT", 0.25),
		PaperPrice:          envFloat("PAPER_PRICE", 64000),

		// Trade Cycle
		TradePeriodDays:    envInt("TRADE_PERIOD_DAYS", 30),
		MinRetrySeconds:    envInt("MIN_RETRY_SECONDS", 60),
		MaxRetrySeconds:    envInt("MAX_RETRY_SECONDS", 7200),
		EnableGraceSeconds: envInt("ENABLE_GRACE_SECONDS", 5),

		// Transfers
		TransferPolicy:     strings.ToLower(envStr("TRANSFER_POLICY", "never")),
		TransferEveryN:     envInt("TRANSFER_EVERY_N", 10),
		SettleDelaySeconds: envInt("SETTLE_DELAY_SECONDS", 10),

		// API
		Port: envInt("PORT", 8080),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if len(c.Pairs) == 0 {
		errs = append(errs, "PAIRS must name at least one currency pair")
	}
	for _, p := range c.Pairs {
		if _, ok := LookupPair(p); !ok {
			errs = append(errs, fmt.Sprintf("PAIRS contains unknown pair %q", p))
		}
	}
	if c.TradeMode != "buy" && c.TradeMode != "sell" {
		errs = append(errs, fmt.Sprintf("TRADE_MODE must be \"buy\" or \"sell\", got %q", c.TradeMode))
	}
	switch c.TransferPolicy {
	case "never", "period_end", "every_nth", "every_trade":
	default:
		errs = append(errs, fmt.Sprintf("TRANSFER_POLICY %q is not one of never, period_end, every_nth, every_trade", c.TransferPolicy))
	}
	if c.TransferPolicy == "every_nth" && c.TransferEveryN < 1 {
		errs = append(errs, "TRANSFER_EVERY_N must be at least 1 for the every_nth policy")
	}
	if c.TradePeriodDays < 1 {
		errs = append(errs, "TRADE_PERIOD_DAYS must be at least 1")
	}
	if c.MinRetrySeconds < 1 || c.MaxRetrySeconds < c.MinRetrySeconds {
		errs = append(errs, "retry bounds invalid: need 1 <= MIN_RETRY_SECONDS <= MAX_RETRY_SECONDS")
	}
	if !c.PaperTradingEnabled && c.ExchangeAPIKey == "" {
		errs = append(errs, "EXCHANGE_API_KEY is required for live trading")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set, REST API has no authentication")
	}
	if c.WebhookURL == "" {
		fmt.Println("[WARN] WEBHOOK_URL not set, status notifications disabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Smart Trade Engine Configuration ===")

	if c.PaperTradingEnabled {
		fmt.Println("════════════════════════════════════════")
		fmt.Println("  PAPER TRADING MODE ENABLED")
		fmt.Println("  No real orders will execute")
		fmt.Println("════════════════════════════════════════")
		fmt.Printf("Paper First Balance: %.8f\n", c.PaperFirstBalance)
		fmt.Printf("Paper Second Balance: %.2f\n", c.PaperSecondBalance)
		fmt.Printf("Paper Fee: %.2f%%\n", c.PaperFeePercent)
		fmt.Printf("Paper Price: %.2f\n", c.PaperPrice)
	} else {
		fmt.Println("  LIVE TRADING MODE")
		fmt.Printf("Exchange: %s\n", c.ExchangeBaseURL)
	}

	fmt.Println("--------------------------------------")
	fmt.Printf("Pairs: %s\n", strings.Join(c.Pairs, ", "))
	fmt.Printf("Mode: %s\n", c.TradeMode)
	fmt.Printf("Trade Period: %d days\n", c.TradePeriodDays)
	fmt.Printf("Retry Interval: %ds - %ds\n", c.MinRetrySeconds, c.MaxRetrySeconds)
	fmt.Println("--------------------------------------")
	fmt.Println("Transfer Configuration:")
	fmt.Printf("  Policy: %s\n", c.TransferPolicy)
	if c.TransferPolicy == "every_nth" {
		fmt.Printf("  Every N Trades: %d\n", c.TransferEveryN)
	}
	if c.TransferPolicy != "never" {
		fmt.Printf("  Settle Delay: %ds\n", c.SettleDelaySeconds)
	}
	fmt.Printf("  Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
