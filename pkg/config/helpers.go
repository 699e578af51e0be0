package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cperrin88/mcfetch/pkg/errors"
)

// SetValue sets a configuration value by its YAML key, e.g.
// max_concurrent_downloads or retry_base_delay. The result is not validated;
// call Validate before saving.
func (c *Config) SetValue(key, value string) error {
	field, ok := settingsField(&c.Settings, key)
	if !ok {
		return errors.ErrUnknownConfigKeyWithName(key)
	}

	switch field.Interface().(type) {
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.ErrInvalidConfigValWithDetails(key, value)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.ErrInvalidConfigValWithDetails(key, value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errors.ErrInvalidConfigValWithDetails(key, value)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.ErrInvalidConfigValWithDetails(key, value)
		}
		field.SetFloat(f)
	default:
		return errors.ErrUnknownConfigKeyWithName(key)
	}
	return nil
}

// GetValue returns a configuration value by its YAML key, formatted as a string.
func (c *Config) GetValue(key string) (string, error) {
	field, ok := settingsField(&c.Settings, key)
	if !ok {
		return "", errors.ErrUnknownConfigKeyWithName(key)
	}
	return formatValue(field), nil
}

// ToMap returns every setting keyed by its YAML name.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)
	v := reflect.ValueOf(c.Settings)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		key := yamlKey(t.Field(i))
		if key == "" {
			continue
		}
		result[key] = formatValue(v.Field(i))
	}
	return result
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := yamlKey(t.Field(i)); key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func settingsField(s *Settings, key string) (reflect.Value, bool) {
	v := reflect.ValueOf(s).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if yamlKey(t.Field(i)) == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// yamlKey handles yaml tags with options (e.g., "proxy,omitempty").
func yamlKey(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

func formatValue(v reflect.Value) string {
	if d, ok := v.Interface().(time.Duration); ok {
		return d.String()
	}
	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.String:
		return v.String()
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
