// Package config loads and validates the scheduler runtime's
// configuration from YAML files and ACTLYRT_-prefixed environment
// variables, layered through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/khryptorgraphics/actlyrt/pkg/sched"
)

// RuntimeConfig is the host-facing, YAML/env-overridable configuration
// surface for a scheduler Runtime.
// It maps onto sched.Config after Validate succeeds.
type RuntimeConfig struct {
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Timer     TimerConfig     `yaml:"timer" mapstructure:"timer"`
	Affinity  AffinityConfig  `yaml:"affinity" mapstructure:"affinity"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// SchedulerConfig tunes the core scheduling surface: core count,
// reduction budget, work-stealing aggressiveness, and the process
// population ceiling.
type SchedulerConfig struct {
	NumCores              int           `yaml:"num_cores" mapstructure:"num_cores"`
	MaxProcesses          int           `yaml:"max_processes" mapstructure:"max_processes"`
	ReductionBudget       int           `yaml:"reduction_budget" mapstructure:"reduction_budget"`
	MaxStealAttempts      int           `yaml:"max_steal_attempts" mapstructure:"max_steal_attempts"`
	MaxConcurrentStealers int           `yaml:"max_concurrent_stealers" mapstructure:"max_concurrent_stealers"`
	MaxMigrationsPerPCB   int32         `yaml:"max_migrations_per_pcb" mapstructure:"max_migrations_per_pcb"`
	PriorityLevels        int           `yaml:"priority_levels" mapstructure:"priority_levels"`
	IdlePoll              time.Duration `yaml:"idle_poll" mapstructure:"idle_poll"`
	PinOSThreads          bool          `yaml:"pin_os_threads" mapstructure:"pin_os_threads"`
}

// TimerConfig tunes the hierarchical timer wheel.
type TimerConfig struct {
	Tick      time.Duration `yaml:"tick" mapstructure:"tick"`
	NearSlots int           `yaml:"near_slots" mapstructure:"near_slots"`
	FarSlots  int           `yaml:"far_slots" mapstructure:"far_slots"`
}

// AffinityConfig tunes P-core/E-core placement.
type AffinityConfig struct {
	PCoreRange []int `yaml:"p_core_range" mapstructure:"p_core_range"`
}

// LoggingConfig holds the ambient logging knobs (level, format). Load
// fills them through the same file/env layering as everything else;
// cmd/actlyrtd builds its logger from its --log-level/--log-format
// flags before loading, so these values do not reconfigure that logger.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultRuntimeConfig returns sane defaults for a host with
// numCores logical cores.
func DefaultRuntimeConfig(numCores int) *RuntimeConfig {
	return &RuntimeConfig{
		Scheduler: SchedulerConfig{
			NumCores:              numCores,
			MaxProcesses:          0,
			ReductionBudget:       2000,
			MaxStealAttempts:      4,
			MaxConcurrentStealers: numCores,
			MaxMigrationsPerPCB:   0,
			PriorityLevels:        sched.NumPriorityLevels,
			IdlePoll:              10 * time.Millisecond,
		},
		Timer: TimerConfig{
			Tick:      time.Millisecond,
			NearSlots: 512,
			FarSlots:  64,
		},
		Affinity: AffinityConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configFile (if non-empty) or the standard search path
// (./config.yaml, ./config/config.yaml, $HOME/.actlyrt, /etc/actlyrt),
// layers ACTLYRT_-prefixed environment variables over it, and
// validates the result.
func Load(configFile string, numCores int) (*RuntimeConfig, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.actlyrt")
		v.AddConfigPath("/etc/actlyrt")
	}

	v.SetEnvPrefix("ACTLYRT")
	v.AutomaticEnv()

	cfg := DefaultRuntimeConfig(numCores)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ValidationError reports one failing field rather than aborting a
// whole Validate call at the first problem.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors aggregates every ValidationError a Validate pass
// found, so a caller sees the full set of problems at once instead of
// fixing them one failed run at a time.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	messages := make([]string, len(e))
	for i, err := range e {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; "))
}

// Validate enforces the numeric invariants of the scheduler surface
// (reduction bounds, core count, timer geometry) before a Runtime is
// built from this config, collecting every failing field into one
// ValidationErrors instead of stopping at the first.
func (c *RuntimeConfig) Validate() error {
	var errs ValidationErrors

	if c.Scheduler.NumCores <= 0 {
		errs = append(errs, ValidationError{Field: "scheduler.num_cores", Value: c.Scheduler.NumCores, Message: "must be positive"})
	} else if c.Scheduler.NumCores > 64 {
		errs = append(errs, ValidationError{Field: "scheduler.num_cores", Value: c.Scheduler.NumCores, Message: "exceeds the 64-core affinity mask width"})
	}
	if c.Scheduler.PriorityLevels != 0 && c.Scheduler.PriorityLevels != sched.NumPriorityLevels {
		errs = append(errs, ValidationError{Field: "scheduler.priority_levels", Value: c.Scheduler.PriorityLevels, Message: fmt.Sprintf("fixed at %d", sched.NumPriorityLevels)})
	}
	if c.Scheduler.ReductionBudget < 100 || c.Scheduler.ReductionBudget > 10000 {
		errs = append(errs, ValidationError{Field: "scheduler.reduction_budget", Value: c.Scheduler.ReductionBudget, Message: "out of range [100, 10000]"})
	}
	if c.Scheduler.MaxStealAttempts < 0 {
		errs = append(errs, ValidationError{Field: "scheduler.max_steal_attempts", Value: c.Scheduler.MaxStealAttempts, Message: "must be non-negative"})
	}
	if c.Timer.Tick <= 0 {
		errs = append(errs, ValidationError{Field: "timer.tick", Value: c.Timer.Tick, Message: "must be positive"})
	}
	if c.Timer.NearSlots <= 0 || c.Timer.FarSlots <= 0 {
		errs = append(errs, ValidationError{Field: "timer.near_slots/timer.far_slots", Value: [2]int{c.Timer.NearSlots, c.Timer.FarSlots}, Message: "must both be positive"})
	}
	for _, core := range c.Affinity.PCoreRange {
		if core < 0 || core >= c.Scheduler.NumCores {
			errs = append(errs, ValidationError{Field: "affinity.p_core_range", Value: core, Message: fmt.Sprintf("entry out of range [0, %d)", c.Scheduler.NumCores)})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateExtended runs Validate and additionally cross-checks that
// max_concurrent_stealers does not exceed num_cores, a condition that
// is harmless but almost always a misconfiguration worth surfacing
// alongside any other failing fields rather than only after they are
// all fixed.
func (c *RuntimeConfig) ValidateExtended() error {
	var errs ValidationErrors
	if err := c.Validate(); err != nil {
		if ve, ok := err.(ValidationErrors); ok {
			errs = append(errs, ve...)
		} else {
			errs = append(errs, ValidationError{Field: "scheduler", Message: err.Error()})
		}
	}
	if c.Scheduler.MaxConcurrentStealers > c.Scheduler.NumCores {
		errs = append(errs, ValidationError{
			Field:   "scheduler.max_concurrent_stealers",
			Value:   c.Scheduler.MaxConcurrentStealers,
			Message: fmt.Sprintf("exceeds scheduler.num_cores (%d)", c.Scheduler.NumCores),
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToSchedConfig translates the validated host configuration into the
// plain sched.Config the scheduler package itself understands.
func (c *RuntimeConfig) ToSchedConfig() sched.Config {
	return sched.Config{
		NumCores:              c.Scheduler.NumCores,
		MaxProcesses:          c.Scheduler.MaxProcesses,
		DefaultReductions:     c.Scheduler.ReductionBudget,
		PCoreRange:            c.Affinity.PCoreRange,
		MaxStealAttempts:      c.Scheduler.MaxStealAttempts,
		MaxConcurrentStealers: c.Scheduler.MaxConcurrentStealers,
		MaxMigrationsPerPCB:   c.Scheduler.MaxMigrationsPerPCB,
		TimerTick:             c.Timer.Tick,
		TimerNearSlots:        c.Timer.NearSlots,
		TimerFarSlots:         c.Timer.FarSlots,
		IdlePoll:              c.Scheduler.IdlePoll,
		PinOSThreads:          c.Scheduler.PinOSThreads,
	}
}

// YAML renders the effective configuration as YAML, for startup
// logging and for writing out an editable template.
func (c *RuntimeConfig) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
