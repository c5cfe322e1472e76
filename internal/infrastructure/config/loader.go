package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
	apperrors "github.com/alexisbeaulieu97/portgraph/pkg/errors"
)

// Load reads settings from path, applies defaults and validates them. An
// empty path yields the defaults. YAML failures are reported as
// *apperrors.ParseError and rule failures as *apperrors.ValidationError.
func Load(ctx context.Context, path string, logger ports.Logger) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	if path == "" {
		return Default(), nil
	}

	if logger != nil {
		logger.Debug(ctx, "loading settings", "path", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, apperrors.NewParseError(path, 0, err)
	}

	s, err := Parse(data, path)
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "settings rejected", "path", path, "error", err)
		}
		return Settings{}, err
	}
	if logger != nil {
		logger.Info(ctx, "settings loaded", "path", path, "log_level", s.LogLevel)
	}
	return s, nil
}

// Parse decodes YAML settings. Unknown keys are rejected.
func Parse(data []byte, path string) (Settings, error) {
	s := Settings{Metrics: MetricsSettings{Enabled: true}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, apperrors.NewParseError(path, 0, err)
	}
	s.ApplyDefaults()
	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks s against the field rules.
func Validate(s Settings) error {
	if err := validatorInstance().Struct(s); err != nil {
		return convertValidationError(err)
	}
	return nil
}

// Marshal renders s as YAML.
func Marshal(s Settings) ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return out, nil
}

func convertValidationError(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return apperrors.NewValidationError(field, msg, err)
	}
	return apperrors.NewValidationError("settings", err.Error(), err)
}

// yamlishFieldName maps a struct namespace such as Settings.Cache.Capacity to
// the YAML path cache.capacity.
func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = snake(part)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	name, index := s, ""
	if i := strings.IndexByte(s, '['); i >= 0 {
		name, index = s[:i], s[i:]
	}
	if yamlName, ok := yamlNames[name]; ok {
		return yamlName + index
	}
	return strings.ToLower(name) + index
}

var yamlNames = map[string]string{
	"LogLevel":       "log_level",
	"HumanReadable":  "human_readable",
	"RecordMetaData": "record_metadata",
	"QuickFixes":     "quick_fixes",
	"DisallowStages": "disallow_stages",
}
