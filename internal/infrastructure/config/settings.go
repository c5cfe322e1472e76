// Package config loads portgraph settings and turns them into the runtime
// services shared by every port.
package config

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultLogLevel         = "info"
	DefaultCacheCapacity    = 512
	DefaultRepairTimeout    = 10 * time.Second
	DefaultMetricsNamespace = "portgraph"
	DefaultRepairChoice     = "keep"
)

// Settings is the on-disk configuration.
type Settings struct {
	LogLevel       string          `yaml:"log_level" validate:"log_level"`
	HumanReadable  bool            `yaml:"human_readable"`
	Interactive    bool            `yaml:"interactive"`
	RecordMetaData bool            `yaml:"record_metadata"`
	Cache          CacheSettings   `yaml:"cache"`
	Repair         RepairSettings  `yaml:"repair"`
	Metrics        MetricsSettings `yaml:"metrics"`
	QuickFixes     QuickFixes      `yaml:"quick_fixes"`
}

// CacheSettings sizes the secondary payload cache.
type CacheSettings struct {
	Capacity int `yaml:"capacity" validate:"gte=0,lte=1000000"`
}

// RepairSettings configures guided repair.
type RepairSettings struct {
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	// Choice answers prompts when no terminal is attached.
	Choice string `yaml:"choice" validate:"omitempty,repair_choice"`
}

// MetricsSettings configures the Prometheus collector.
type MetricsSettings struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"omitempty,metric_namespace"`
}

// QuickFixes filters the quick fixes offered to users.
type QuickFixes struct {
	DisallowStages []string `yaml:"disallow_stages" validate:"dive,required"`
}

// Default returns settings with every default applied.
func Default() Settings {
	s := Settings{Metrics: MetricsSettings{Enabled: true}}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills unset fields.
func (s *Settings) ApplyDefaults() {
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if s.Cache.Capacity == 0 {
		s.Cache.Capacity = DefaultCacheCapacity
	}
	if s.Repair.Timeout == 0 {
		s.Repair.Timeout = DefaultRepairTimeout
	}
	if s.Repair.Choice == "" {
		s.Repair.Choice = DefaultRepairChoice
	}
	if s.Metrics.Namespace == "" {
		s.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// RepairChoice returns the configured non-interactive repair answer.
func (s Settings) RepairChoice() port.RepairChoice {
	c, err := port.ParseRepairChoice(s.Repair.Choice)
	if err != nil {
		return port.RepairKeep
	}
	return c
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	namespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	logLevels        = map[string]struct{}{"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {}, "disabled": {}}
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("log_level", func(fl validator.FieldLevel) bool {
			_, ok := logLevels[strings.ToLower(fl.Field().String())]
			return ok
		})

		_ = v.RegisterValidation("metric_namespace", func(fl validator.FieldLevel) bool {
			return namespacePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("repair_choice", func(fl validator.FieldLevel) bool {
			_, err := port.ParseRepairChoice(fl.Field().String())
			return err == nil
		})

		validateInst = v
	})

	return validateInst
}
