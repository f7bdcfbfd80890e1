package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/polyreplay/internal/application/backtest"
	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/alejandrodnm/polyreplay/internal/strategy"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Data     DataConfig     `yaml:"data"`
	Strategy StrategyConfig `yaml:"strategy"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla el engine: capital, límites de riesgo y ejecución.
// Un límite <= 0 desactiva la comprobación correspondiente.
type BacktestConfig struct {
	InitialCapital         float64  `yaml:"initial_capital"`
	MaxTradeSize           *float64 `yaml:"max_trade_size"`
	MinLiquidityMultiplier *float64 `yaml:"min_liquidity_multiplier"`
	MaxUnhedgedDelta       *float64 `yaml:"max_unhedged_delta"`
	SafetyMargin           *float64 `yaml:"safety_margin"`
	SlippageDelaySeconds   float64  `yaml:"slippage_delay_seconds"` // 0 = sin slippage
	ExpiryGraceSeconds     float64  `yaml:"expiry_grace_seconds"`
	Workers                int      `yaml:"workers"` // <= 1 = secuencial
}

// DataConfig indica de dónde leer los CSV.
type DataConfig struct {
	Dir      string `yaml:"dir"`
	Date     string `yaml:"date"` // YYYYMMDD o "latest"
	BaseName string `yaml:"base_name"`
}

// StrategyConfig elige la estrategia y sus parámetros.
type StrategyConfig struct {
	Name          string  `yaml:"name"`
	TradeFraction float64 `yaml:"trade_fraction"`
	MaxAllocation float64 `yaml:"max_allocation"`
	Margin        float64 `yaml:"margin"`
	MinMinute     int     `yaml:"min_minute"`
	MaxMinute     int     `yaml:"max_minute"`
	StopLoss      float64 `yaml:"stop_loss"`
}

// OutputConfig controla dónde se escribe el report. Una ruta vacía lo omite.
type OutputConfig struct {
	JSON      string `yaml:"json"`
	TradesCSV string `yaml:"trades_csv"`
	RiskCSV   string `yaml:"risk_csv"`
	Table     bool   `yaml:"table"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Sin path se usan solo defaults y variables de entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("POLYREPLAY_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("POLYREPLAY_INITIAL_CAPITAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("POLYREPLAY_INITIAL_CAPITAL %q: %w", v, err)
		}
		cfg.Backtest.InitialCapital = f
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los límites de riesgo ausentes toman el default; un 0 explícito los desactiva.
func setDefaults(cfg *Config) {
	risk := domain.DefaultRiskConfig()
	if cfg.Backtest.InitialCapital <= 0 {
		cfg.Backtest.InitialCapital = 1000
	}
	if cfg.Backtest.MaxTradeSize == nil {
		cfg.Backtest.MaxTradeSize = &risk.MaxTradeSize
	}
	if cfg.Backtest.MinLiquidityMultiplier == nil {
		cfg.Backtest.MinLiquidityMultiplier = &risk.MinLiquidityMultiplier
	}
	if cfg.Backtest.MaxUnhedgedDelta == nil {
		cfg.Backtest.MaxUnhedgedDelta = &risk.MaxUnhedgedDelta
	}
	if cfg.Backtest.SafetyMargin == nil {
		cfg.Backtest.SafetyMargin = &risk.SafetyMargin
	}
	if cfg.Backtest.ExpiryGraceSeconds <= 0 {
		cfg.Backtest.ExpiryGraceSeconds = 60
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.Date == "" {
		cfg.Data.Date = "latest"
	}
	if cfg.Data.BaseName == "" {
		cfg.Data.BaseName = "market_data"
	}

	params := strategy.DefaultParams()
	if cfg.Strategy.Name == "" {
		cfg.Strategy.Name = "rebalancing"
	}
	if cfg.Strategy.TradeFraction <= 0 {
		cfg.Strategy.TradeFraction = params.TradeFraction
	}
	if cfg.Strategy.MaxAllocation <= 0 {
		cfg.Strategy.MaxAllocation = params.MaxAllocation
	}
	if cfg.Strategy.Margin <= 0 {
		cfg.Strategy.Margin = params.Margin
	}
	if cfg.Strategy.MinMinute <= 0 {
		cfg.Strategy.MinMinute = params.MinMinute
	}
	if cfg.Strategy.MaxMinute <= 0 {
		cfg.Strategy.MaxMinute = params.MaxMinute
	}
	if cfg.Strategy.StopLoss <= 0 {
		cfg.Strategy.StopLoss = params.StopLoss
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Risk devuelve los límites de riesgo del engine.
func (c *Config) Risk() domain.RiskConfig {
	return domain.RiskConfig{
		MaxTradeSize:           deref(c.Backtest.MaxTradeSize),
		MinLiquidityMultiplier: deref(c.Backtest.MinLiquidityMultiplier),
		MaxUnhedgedDelta:       deref(c.Backtest.MaxUnhedgedDelta),
		SafetyMargin:           deref(c.Backtest.SafetyMargin),
	}
}

// Engine convierte la configuración al valor que recibe el driver.
func (c *Config) Engine() backtest.Config {
	return backtest.Config{
		InitialCapital: c.Backtest.InitialCapital,
		Risk:           c.Risk(),
		SlippageDelay:  seconds(c.Backtest.SlippageDelaySeconds),
		ExpiryGrace:    seconds(c.Backtest.ExpiryGraceSeconds),
	}
}

// Params devuelve los parámetros de estrategia. Las estrategias dimensionan
// con los mismos límites que aplica el engine.
func (c *Config) Params() strategy.Params {
	return strategy.Params{
		Risk:          c.Risk(),
		TradeFraction: c.Strategy.TradeFraction,
		MaxAllocation: c.Strategy.MaxAllocation,
		Margin:        c.Strategy.Margin,
		MinMinute:     c.Strategy.MinMinute,
		MaxMinute:     c.Strategy.MaxMinute,
		StopLoss:      c.Strategy.StopLoss,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
