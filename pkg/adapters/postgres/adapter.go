// Package postgres provides a PostgreSQL database adapter for gridedit.
package postgres

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/gridedit/pkg/adapter"
	pgdialect "github.com/leapstack-labs/gridedit/pkg/adapters/postgres/dialect"
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// Params holds PostgreSQL-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	SearchPath      string `mapstructure:"search_path"`
	ApplicationName string `mapstructure:"application_name"`
	// ConnectTimeout in seconds
	ConnectTimeout int `mapstructure:"connect_timeout"`
}

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
		return nil, fmt.Errorf("failed to parse postgres params: %w", err)
	}
	return p, nil
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:       logger,
			Dialect:      pgdialect.Postgres,
			ConvertValue: convertValue,
		},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	dsn := buildPostgresDSN(cfg, params)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL key=value connection string.
func buildPostgresDSN(cfg adapter.Config, p *Params) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += " user=" + dsnValue(cfg.Username)
	}
	if cfg.Password != "" {
		dsn += " password=" + dsnValue(cfg.Password)
	}

	searchPath := cfg.Schema
	if p != nil && p.SearchPath != "" {
		searchPath = p.SearchPath
	}
	if searchPath != "" {
		dsn += " search_path=" + dsnValue(searchPath)
	}
	if p != nil {
		if p.ApplicationName != "" {
			dsn += " application_name=" + dsnValue(p.ApplicationName)
		}
		if p.ConnectTimeout > 0 {
			dsn += fmt.Sprintf(" connect_timeout=%d", p.ConnectTimeout)
		}
	}
	return dsn
}

// dsnValue quotes a value containing spaces, quotes or backslashes.
func dsnValue(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// GetColumnMetadata classifies the columns of a table. Serial columns are
// recognised by their nextval() default, identity columns by is_identity.
func (a *Adapter) GetColumnMetadata(ctx context.Context, table string) ([]core.Column, error) {
	return a.GetColumnMetadataCommon(ctx, table, "c.is_identity = 'YES'")
}

func convertValue(v any) value.Raw {
	switch t := v.(type) {
	case []byte:
		return value.Text(base64.StdEncoding.EncodeToString(t))
	case time.Time:
		return value.Text(t.Format(time.DateTime))
	}
	return value.FromAny(v)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
