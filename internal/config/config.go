package config

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/boardnode/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "BOARDNODE_"

// LoadConfig fills opts, a pointer to a flat options struct, from the file
// named by its Config field and from BOARDNODE_* environment variables.
// Precedence is CLI > env > file: fields whose flag was set on cmd are left
// alone. A missing file is not an error; an unparsable one is.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()

	fromCLI := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().Visit(func(f *pflag.Flag) { fromCLI[f.Name] = true })
	}

	var file map[string]any
	if cfg := v.FieldByName("Config"); cfg.IsValid() && cfg.String() != "" {
		data, err := os.ReadFile(cfg.String())
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("failed to read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}
		}
	}

	for field, sf := range settableFields(v) {
		if fromCLI[fieldNameToFlag(sf.Name)] {
			continue
		}
		if path := sf.Tag.Get("toml"); path != "" && file != nil {
			if value := getNestedValue(file, path); value != nil {
				setFieldValue(field, value)
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if env := os.Getenv(EnvPrefix + key); env != "" {
				setFieldValueFromString(field, env)
			}
		}
	}
	return nil
}

// settableFields yields the exported fields of the struct v.
func settableFields(v reflect.Value) iter.Seq2[reflect.Value, reflect.StructField] {
	return func(yield func(reflect.Value, reflect.StructField) bool) {
		t := v.Type()
		for i := range t.NumField() {
			if !v.Field(i).CanSet() {
				continue
			}
			if !yield(v.Field(i), t.Field(i)) {
				return
			}
		}
	}
}

// fieldNameToFlag converts a struct field name to the kebab-case flag name
// humacli derives from it. Acronym runs stay together.
// Example: "LoggingLevel" -> "logging-level", "GPIOBackend" -> "gpio-backend".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			return nil
		}
	}
	return nil
}

// setFieldValue sets a field value using reflection.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int32, reflect.Int64:
		switch i := value.(type) {
		case int64:
			field.SetInt(i)
		case int:
			field.SetInt(int64(i))
		case float64:
			field.SetInt(int64(i))
		}
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		if i, ok := value.(int64); ok && i >= 0 {
			field.SetUint(uint64(i))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			if arr, ok := value.([]any); ok {
				slice := make([]string, len(arr))
				for i, v := range arr {
					if s, strOk := v.(string); strOk {
						slice[i] = s
					}
				}
				field.Set(reflect.ValueOf(slice))
			}
		}
	}
}

// setFieldValueFromString sets a field value from string (for env vars).
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int32, reflect.Int64:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		if i, err := strconv.ParseUint(value, 10, 64); err == nil {
			field.SetUint(i)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Parse comma-separated values for env vars
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
}

// loggingFromTable reads a flat [logging] table: level and format are
// global, every other key is a module override.
func loggingFromTable(table map[string]string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	for key, value := range table {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
