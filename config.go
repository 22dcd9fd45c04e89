package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Market represents the tracked market.
	Market string
	// TrendEntryADX is the ADX threshold for entering a trending mode.
	TrendEntryADX float64
	// RangeEntryADX is the ADX threshold for entering the ranging mode.
	RangeEntryADX float64
	// MinConfidence is the minimum confidence for an actionable signal.
	MinConfidence float64
	// MinAgreement is the minimum number of agreeing timeframes.
	MinAgreement int
	// InitialBalance is the starting account balance.
	InitialBalance float64
	// BaseStake is the base contract stake.
	BaseStake float64
	// RiskPercent is the percentage of balance risked per trade.
	RiskPercent float64
	// MaxMartingaleSteps caps the stake ladder.
	MaxMartingaleSteps int
	// MaxDailyTrades caps the number of settled trades per day.
	MaxDailyTrades int
	// MaxDailyLossPercent caps the daily loss percentage.
	MaxDailyLossPercent float64
	// MaxConsecutiveLosses is the loss streak limit.
	MaxConsecutiveLosses int
	// CooldownSeconds is the loss streak cooldown in seconds.
	CooldownSeconds int
	// PayoutRate is the payout fraction of stake for a winning contract.
	PayoutRate float64
	// ContractDurationSeconds is the rise/fall contract duration in seconds.
	ContractDurationSeconds int
	// MinTradeIntervalSeconds is the minimum gap between entries in seconds.
	MinTradeIntervalSeconds int
	// DatabaseEndpoint is the trade persistence endpoint, optional.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// Replay is the historic replay flag.
	Replay bool
	// ReplayDataFilepath is the filepath to the historic replay data.
	ReplayDataFilepath string
	// ReplayOutputFilepath is the filepath for the replay cycle records.
	ReplayOutputFilepath string
	// MaxReplayTrades caps the number of replay contracts.
	MaxReplayTrades int

	registeredFlags map[string]bool
}

// applyDefaults fills unset numeric fields with their defaults.
func (cfg *Config) applyDefaults() {
	if cfg.TrendEntryADX == 0 {
		cfg.TrendEntryADX = 27
	}
	if cfg.RangeEntryADX == 0 {
		cfg.RangeEntryADX = 18
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 60
	}
	if cfg.MinAgreement == 0 {
		cfg.MinAgreement = 2
	}
	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = 1000
	}
	if cfg.BaseStake == 0 {
		cfg.BaseStake = 10
	}
	if cfg.RiskPercent == 0 {
		cfg.RiskPercent = 2
	}
	if cfg.MaxMartingaleSteps == 0 {
		cfg.MaxMartingaleSteps = 3
	}
	if cfg.MaxDailyTrades == 0 {
		cfg.MaxDailyTrades = 50
	}
	if cfg.MaxDailyLossPercent == 0 {
		cfg.MaxDailyLossPercent = 10
	}
	if cfg.MaxConsecutiveLosses == 0 {
		cfg.MaxConsecutiveLosses = 3
	}
	if cfg.CooldownSeconds == 0 {
		cfg.CooldownSeconds = 600
	}
	if cfg.PayoutRate == 0 {
		cfg.PayoutRate = 0.95
	}
	if cfg.ContractDurationSeconds == 0 {
		cfg.ContractDurationSeconds = 180
	}
	if cfg.MinTradeIntervalSeconds == 0 {
		cfg.MinTradeIntervalSeconds = 60
	}
	if cfg.ReplayOutputFilepath == "" {
		cfg.ReplayOutputFilepath = "cycles.csv"
	}
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.RangeEntryADX >= cfg.TrendEntryADX {
		errs = errors.Join(errs, fmt.Errorf("range entry threshold (%.2f) must be strictly below trend entry threshold (%.2f)",
			cfg.RangeEntryADX, cfg.TrendEntryADX))
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 100 {
		errs = errors.Join(errs, fmt.Errorf("min confidence must be in [0, 100], got %.2f", cfg.MinConfidence))
	}
	if cfg.MinAgreement < 1 || cfg.MinAgreement > 3 {
		errs = errors.Join(errs, fmt.Errorf("min agreement must be in [1, 3], got %d", cfg.MinAgreement))
	}
	if cfg.PayoutRate <= 0 || cfg.PayoutRate > 1 {
		errs = errors.Join(errs, fmt.Errorf("payout rate must be in (0, 1], got %.2f", cfg.PayoutRate))
	}
	if cfg.MaxMartingaleSteps < 0 {
		errs = errors.Join(errs, fmt.Errorf("max martingale steps cannot be negative"))
	}
	if cfg.MaxConsecutiveLosses <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max consecutive losses must be positive"))
	}
	if cfg.CooldownSeconds < 0 {
		errs = errors.Join(errs, fmt.Errorf("cooldown seconds cannot be negative"))
	}
	if cfg.ContractDurationSeconds <= 0 {
		errs = errors.Join(errs, fmt.Errorf("contract duration must be positive"))
	}
	if cfg.Replay && cfg.ReplayDataFilepath == "" {
		errs = errors.Join(errs, fmt.Errorf("replay data filepath cannot be an empty string"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		def := *value.(*string)
		if defValue != "" {
			def = defValue
		}
		flag.StringVar(value.(*string), name, def, usage)
	case reflect.Bool:
		def := *value.(*bool)
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		def := *value.(*int)
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		def := *value.(*float64)
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	cfg.applyDefaults()

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"market", &cfg.Market, "the tracked market"},
		{"trendentryadx", &cfg.TrendEntryADX, "the adx threshold for entering a trending mode"},
		{"rangeentryadx", &cfg.RangeEntryADX, "the adx threshold for entering the ranging mode"},
		{"minconfidence", &cfg.MinConfidence, "the minimum confidence for an actionable signal"},
		{"minagreement", &cfg.MinAgreement, "the minimum number of agreeing timeframes"},
		{"initialbalance", &cfg.InitialBalance, "the starting account balance"},
		{"basestake", &cfg.BaseStake, "the base contract stake"},
		{"riskpercent", &cfg.RiskPercent, "the percentage of balance risked per trade"},
		{"maxmartingalesteps", &cfg.MaxMartingaleSteps, "the stake ladder cap"},
		{"maxdailytrades", &cfg.MaxDailyTrades, "the daily trade cap"},
		{"maxdailylosspercent", &cfg.MaxDailyLossPercent, "the daily loss percentage cap"},
		{"maxconsecutivelosses", &cfg.MaxConsecutiveLosses, "the loss streak limit"},
		{"cooldownseconds", &cfg.CooldownSeconds, "the loss streak cooldown in seconds"},
		{"payoutrate", &cfg.PayoutRate, "the payout fraction for a winning contract"},
		{"contractdurationseconds", &cfg.ContractDurationSeconds, "the contract duration in seconds"},
		{"mintradeintervalseconds", &cfg.MinTradeIntervalSeconds, "the minimum gap between entries in seconds"},
		{"databaseendpoint", &cfg.DatabaseEndpoint, "the trade persistence endpoint"},
		{"databaseuser", &cfg.DatabaseUser, "the database user"},
		{"databasepass", &cfg.DatabasePass, "the database user pass"},
		{"replay", &cfg.Replay, "the historic replay flag"},
		{"replaydatafilepath", &cfg.ReplayDataFilepath, "the historic replay data filepath"},
		{"replayoutputfilepath", &cfg.ReplayOutputFilepath, "the replay cycle records filepath"},
		{"maxreplaytrades", &cfg.MaxReplayTrades, "the replay contract cap"},
	}
	for idx := range flags {
		err = cfg.registerFlag(flags[idx].name, flags[idx].value, flags[idx].usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
