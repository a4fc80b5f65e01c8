package duckdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs", "json")
	Extensions []string `mapstructure:"extensions"`

	// Secrets for cloud storage authentication
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings applied with SET after connecting (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret for cloud storage.
type SecretConfig struct {
	// Type: "s3", "gcs", "azure", "r2", "huggingface"
	Type string `mapstructure:"type"`

	// Provider: "config", "credential_chain", "service_account", etc.
	Provider string `mapstructure:"provider"`

	Region string `mapstructure:"region,omitempty"`

	// Scope limits the secret to specific paths (string or list)
	Scope any `mapstructure:"scope,omitempty"`

	KeyID  string `mapstructure:"key_id,omitempty"`
	Secret string `mapstructure:"secret,omitempty"`

	// Endpoint for S3-compatible services
	Endpoint string `mapstructure:"endpoint,omitempty"`

	// URLStyle: "vhost" or "path"
	URLStyle string `mapstructure:"url_style,omitempty"`

	UseSSL *bool `mapstructure:"use_ssl,omitempty"`
}

// parseParams decodes the target params. Scalars are weakly typed so that
// settings written as YAML numbers (threads: 2) decode into strings.
func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to parse duckdb params: %w", err)
	}
	return p, nil
}

// buildCreateSecretSQL renders a CREATE SECRET statement.
func buildCreateSecretSQL(s SecretConfig) string {
	opts := []string{"TYPE " + s.Type}
	if s.Provider != "" {
		opts = append(opts, "PROVIDER "+s.Provider)
	}
	if s.Region != "" {
		opts = append(opts, "REGION "+quoteLiteral(s.Region))
	}
	if scope := scopeClause(s.Scope); scope != "" {
		opts = append(opts, "SCOPE "+scope)
	}
	if s.KeyID != "" {
		opts = append(opts, "KEY_ID "+quoteLiteral(s.KeyID))
	}
	if s.Secret != "" {
		opts = append(opts, "SECRET "+quoteLiteral(s.Secret))
	}
	if s.Endpoint != "" {
		opts = append(opts, "ENDPOINT "+quoteLiteral(s.Endpoint))
	}
	if s.URLStyle != "" {
		opts = append(opts, "URL_STYLE "+quoteLiteral(s.URLStyle))
	}
	if s.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}
	return "CREATE SECRET (\n    " + strings.Join(opts, ",\n    ") + "\n)"
}

func scopeClause(scope any) string {
	var items []string
	switch v := scope.(type) {
	case nil:
		return ""
	case string:
		if v == "" {
			return ""
		}
		return quoteLiteral(v)
	case []string:
		items = v
	case []any:
		for _, x := range v {
			items = append(items, fmt.Sprint(x))
		}
	default:
		return quoteLiteral(fmt.Sprint(v))
	}
	if len(items) == 0 {
		return ""
	}
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = quoteLiteral(it)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// sortedSettings returns settings keys in a stable order.
func sortedSettings(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
