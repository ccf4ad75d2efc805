package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apartment-portal/internal/config"
	"apartment-portal/internal/dataset"
)

// Source is a dataset provider plus whatever must be released when done with it
type Source struct {
	dataset.Provider
	Kind  string
	close func() error
}

// Close releases the underlying connection, if any
func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenSource builds the provider selected by cfg.Data.Source
func OpenSource(ctx context.Context, cfg *config.Config) (*Source, error) {
	kind := strings.ToLower(cfg.Data.Source)
	switch kind {
	case "", "files":
		zap.L().Info("using file datasets", zap.String("dir", cfg.Data.Dir))
		return &Source{Provider: dataset.NewFileProvider(cfg.Data.Dir), Kind: "files"}, nil

	case "s3":
		p, err := dataset.NewS3Provider(ctx, dataset.S3Options{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		zap.L().Info("using s3 datasets", zap.String("bucket", cfg.S3.Bucket), zap.String("prefix", cfg.S3.Prefix))
		return &Source{Provider: p, Kind: kind}, nil

	case "postgres":
		pg := cfg.Database.Postgres
		db, err := NewDB(
			config.GetEnvOrConfig(pg.Host, "DB_HOST", "localhost"),
			config.GetEnvOrConfig(portString(pg.Port), "DB_PORT", "5432"),
			config.GetEnvOrConfig(pg.User, "DB_USER", "apartments"),
			pg.Password,
			config.GetEnvOrConfig(pg.Database, "DB_NAME", "apartments"),
			pg.SSLMode,
		)
		if err != nil {
			return nil, err
		}
		zap.L().Info("using postgres datasets")
		return &Source{Provider: db, Kind: kind, close: db.Close}, nil

	case "sqlite":
		db, err := NewSQLiteDB(cfg.Database.SQLite.Path)
		if err != nil {
			return nil, err
		}
		zap.L().Info("using sqlite datasets", zap.String("path", cfg.Database.SQLite.Path))
		return &Source{Provider: db, Kind: kind, close: db.Close}, nil

	case "mysql":
		my := cfg.Database.MySQL
		gdb, err := NewGormDB(
			config.GetEnvOrConfig(my.Host, "DB_HOST", "localhost"),
			config.GetEnvOrConfig(portString(my.Port), "DB_PORT", "3306"),
			config.GetEnvOrConfig(my.User, "DB_USER", "apartments"),
			my.Password,
			config.GetEnvOrConfig(my.Database, "DB_NAME", "apartments"),
		)
		if err != nil {
			return nil, err
		}
		zap.L().Info("using mysql datasets")
		return &Source{Provider: gdb, Kind: kind, close: gdb.Close}, nil

	default:
		return nil, eris.Errorf("database: unknown data source %q", cfg.Data.Source)
	}
}

// portString handles 0 as unset
func portString(port int) string {
	if port <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", port)
}
