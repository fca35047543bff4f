package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tabot/internal/exchange"
	"tabot/internal/execution"
	"tabot/internal/model"
	"tabot/internal/portfolio"
	"tabot/internal/signal"
	"tabot/internal/strategy"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the full agent configuration: a YAML strategy file, then .env,
// then process environment overrides.
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Strategy StrategyConfig `yaml:"strategy"`
	Report   ReportConfig   `yaml:"report"`
	Notify   NotifyConfig   `yaml:"notify"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// ExchangeConfig selects the market and the paper account.
type ExchangeConfig struct {
	Market          string   `yaml:"market"`
	DataURL         string   `yaml:"data_url"` // Binance REST base; empty picks spot or futures by market
	QuoteAsset      string   `yaml:"quote_asset"`
	StartingBalance float64  `yaml:"starting_balance"`
	SlippageBps     float64  `yaml:"slippage_bps"`
	Symbols         []string `yaml:"symbols"`
}

// RiskConfig sizes stop-loss and take-profit distances.
type RiskConfig struct {
	ATRPeriod   int     `yaml:"atr_period"`
	Percent     float64 `yaml:"percent"`
	RewardRatio float64 `yaml:"reward_ratio"`
}

// StrategyConfig describes one strategy. A Preset fills every field left
// unset; with neither preset nor rules, technical-analysis is used.
type StrategyConfig struct {
	Name          string               `yaml:"name"`
	Preset        string               `yaml:"preset"`
	Timeframe     string               `yaml:"timeframe"`
	OrderValuePct float64              `yaml:"order_value_pct"`
	Risk          RiskConfig           `yaml:"risk"`
	Leverage      int                  `yaml:"leverage"`
	Trailing      *bool                `yaml:"trailing"`
	MinVote       *float64             `yaml:"min_vote"`
	CandleCount   int                  `yaml:"candle_count"`
	Rules         []signal.RuleConfig  `yaml:"rules"`
	Limits        portfolio.RiskLimits `yaml:"limits"`
}

// RedisConfig enables the pub/sub event stream.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ReportConfig selects the report sinks.
type ReportConfig struct {
	Console     bool        `yaml:"console"`
	Verbose     bool        `yaml:"verbose"`
	JournalPath string      `yaml:"journal_path"` // empty keeps decisions in memory
	Redis       RedisConfig `yaml:"redis"`
}

// NotifyConfig configures alert channels. Empty credentials disable a channel.
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
	WebhookURL     string `yaml:"webhook_url"`
	MinLevel       string `yaml:"min_level"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Market:          string(exchange.MarketFutures),
			QuoteAsset:      "USDT",
			StartingBalance: 1000,
			SlippageBps:     5,
			Symbols:         []string{"BTCUSDT", "ETHUSDT"},
		},
		Strategy: StrategyConfig{
			CandleCount: strategy.DefaultCandleCount,
		},
		Report: ReportConfig{
			Console: true,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tabot",
			},
		},
		Notify: NotifyConfig{MinLevel: "warning"},
		Server: ServerConfig{Addr: ":9090"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (optional), applies .env and environment overrides,
// expands the preset and validates. Any failure is returned; the caller
// decides whether it is fatal.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.applyPreset(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Exchange.Market = getEnv("TABOT_MARKET", c.Exchange.Market)
	c.Exchange.DataURL = getEnv("TABOT_DATA_URL", c.Exchange.DataURL)
	c.Exchange.StartingBalance = getEnvFloat("TABOT_STARTING_BALANCE", c.Exchange.StartingBalance)
	if v := os.Getenv("TABOT_SYMBOLS"); v != "" {
		c.Exchange.Symbols = splitList(v)
	}

	c.Strategy.Preset = getEnv("TABOT_PRESET", c.Strategy.Preset)
	c.Strategy.Timeframe = getEnv("TABOT_TIMEFRAME", c.Strategy.Timeframe)
	if v := os.Getenv("TABOT_MIN_VOTE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Strategy.MinVote = &f
		} else {
			log.Printf("[config] skipping invalid TABOT_MIN_VOTE: %q", v)
		}
	}

	c.Report.JournalPath = getEnv("SQLITE_PATH", c.Report.JournalPath)
	c.Report.Redis.Addr = getEnv("REDIS_ADDR", c.Report.Redis.Addr)
	c.Report.Redis.Password = getEnv("REDIS_PASSWORD", c.Report.Redis.Password)
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		c.Report.Redis.Enabled = v == "1" || strings.EqualFold(v, "true")
	}

	c.Notify.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.Notify.TelegramToken)
	c.Notify.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.Notify.TelegramChatID)
	c.Notify.WebhookURL = getEnv("WEBHOOK_URL", c.Notify.WebhookURL)

	c.Server.Addr = getEnv("METRICS_ADDR", c.Server.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c *Config) applyPreset() error {
	s := &c.Strategy
	if s.Preset == "" {
		if len(s.Rules) > 0 {
			return nil
		}
		s.Preset = PresetTechnicalAnalysis
	}
	p, ok := Preset(s.Preset, exchange.Market(c.Exchange.Market))
	if !ok {
		return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, s.Preset)
	}
	if s.Name == "" {
		s.Name = p.Name
	}
	if s.Timeframe == "" {
		s.Timeframe = p.Timeframe
	}
	if s.OrderValuePct == 0 {
		s.OrderValuePct = p.OrderValuePct
	}
	if s.Risk == (RiskConfig{}) {
		s.Risk = p.Risk
	}
	if s.Leverage == 0 {
		s.Leverage = p.Leverage
	}
	if s.Trailing == nil {
		s.Trailing = p.Trailing
	}
	if s.MinVote == nil {
		s.MinVote = p.MinVote
	}
	if len(s.Rules) == 0 {
		s.Rules = p.Rules
	}
	return nil
}

// Validate fails fast on anything the agent cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch exchange.Market(c.Exchange.Market) {
	case exchange.MarketFutures, exchange.MarketSpot:
	default:
		errs = append(errs, fmt.Errorf("market %q is neither futures nor spot", c.Exchange.Market))
	}
	if c.Exchange.StartingBalance <= 0 {
		errs = append(errs, fmt.Errorf("starting balance must be positive"))
	}
	if len(c.Exchange.Symbols) == 0 {
		errs = append(errs, fmt.Errorf("no symbols"))
	}
	if len(c.Strategy.Rules) == 0 {
		errs = append(errs, fmt.Errorf("strategy has no rules and no preset"))
	} else if _, err := signal.BuildAll(c.Strategy.Rules); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Report.Redis.Enabled && c.Report.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("redis enabled without an address"))
	}
	if err := c.Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Params converts the strategy section into loop parameters. A missing
// min vote takes strategy.DefaultMinVote.
func (c *Config) Params() strategy.Params {
	s := c.Strategy
	minVote := strategy.DefaultMinVote
	if s.MinVote != nil {
		minVote = *s.MinVote
	}
	return strategy.Params{
		Name:          s.Name,
		Market:        exchange.Market(c.Exchange.Market),
		Timeframe:     model.Timeframe(s.Timeframe),
		OrderValuePct: s.OrderValuePct,
		Risk: execution.RiskConfig{
			ATRPeriod:   s.Risk.ATRPeriod,
			Percent:     s.Risk.Percent,
			RewardRatio: s.Risk.RewardRatio,
		},
		Leverage:    s.Leverage,
		Trailing:    s.Trailing != nil && *s.Trailing,
		MinVote:     minVote,
		CandleCount: s.CandleCount,
		Symbols:     c.Exchange.Symbols,
		Limits:      s.Limits,
	}
}

// Paper converts the exchange section into paper gateway settings.
func (c *Config) Paper() exchange.PaperConfig {
	return exchange.PaperConfig{
		Market:          exchange.Market(c.Exchange.Market),
		QuoteAsset:      c.Exchange.QuoteAsset,
		StartingBalance: c.Exchange.StartingBalance,
		SlippageBps:     c.Exchange.SlippageBps,
		Symbols:         c.Exchange.Symbols,
	}
}

// DataURL returns the klines base URL for the configured market.
func (c *Config) DataURL() string {
	if c.Exchange.DataURL != "" {
		return c.Exchange.DataURL
	}
	if exchange.Market(c.Exchange.Market) == exchange.MarketSpot {
		return exchange.BinanceSpotURL
	}
	return exchange.BinanceFuturesURL
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] skipping invalid %s: %q", key, v)
		return fallback
	}
	return f
}
