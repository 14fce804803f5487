package warehouse

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/mickamy/qprof/internal/config"
	"github.com/mickamy/qprof/internal/model"
)

// Session is a Source bound to one open warehouse connection.
type Session struct {
	*Source
	close func(context.Context) error
}

// Close releases the connection.
func (s *Session) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects with the profile's connector and pins a single session.
func Open(ctx context.Context, p config.Profile, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("warehouse: %w", err)
	}
	rel := Relations{Full: p.FullHistory, Fast: p.FastHistory}

	switch p.Connector {
	case config.ConnectorSnowflake:
		return openSnowflake(ctx, p, rel, logger)
	case config.ConnectorPostgres:
		return openPostgres(ctx, p, rel, logger)
	default:
		return nil, fmt.Errorf("warehouse: unknown connector %q", p.Connector)
	}
}

func openSnowflake(ctx context.Context, p config.Profile, rel Relations, logger *zap.Logger) (*Session, error) {
	cfg, err := snowflakeConfig(p)
	if err != nil {
		return nil, fmt.Errorf("warehouse: %w", err)
	}
	logger.Info("connecting to snowflake",
		zap.String("account", p.Account),
		zap.String("user", p.User),
		zap.String("auth", string(p.Auth)),
		zap.String("warehouse", p.Warehouse),
	)

	db := sql.OpenDB(gosnowflake.NewConnector(gosnowflake.SnowflakeDriver{}, *cfg))
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &model.StoreError{Op: "connect", Err: err}
	}
	return &Session{
		Source: New(NewSQLQuerier(conn), rel, logger),
		close: func(context.Context) error {
			return errors.Join(conn.Close(), db.Close())
		},
	}, nil
}

func snowflakeConfig(p config.Profile) (*gosnowflake.Config, error) {
	cfg := &gosnowflake.Config{
		Account:   p.Account,
		User:      p.User,
		Role:      p.Role,
		Warehouse: p.Warehouse,
		Database:  p.Database,
		Schema:    p.Schema,
	}
	switch p.Auth {
	case config.AuthSSO:
		cfg.Authenticator = gosnowflake.AuthTypeExternalBrowser
	case config.AuthPassword:
		cfg.Authenticator = gosnowflake.AuthTypeSnowflake
		cfg.Password = os.Getenv(p.PasswordEnv)
		if cfg.Password == "" {
			return nil, fmt.Errorf("password auth: $%s is empty", p.PasswordEnv)
		}
	case config.AuthKeyPair:
		path, err := config.ExpandHome(p.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		key, err := LoadPrivateKey(path)
		if err != nil {
			return nil, err
		}
		cfg.Authenticator = gosnowflake.AuthTypeJwt
		cfg.PrivateKey = key
	default:
		return nil, fmt.Errorf("unknown auth %q", p.Auth)
	}
	return cfg, nil
}

// LoadPrivateKey reads an unencrypted PEM RSA key in PKCS#8 or PKCS#1 form.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("private key %s: no PEM block", path)
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key %s: not an RSA key", path)
		}
		return key, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("private key %s: %w", path, err)
	}
	return key, nil
}

func openPostgres(ctx context.Context, p config.Profile, rel Relations, logger *zap.Logger) (*Session, error) {
	dsn := p.DSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	logger.Info("connecting to postgres gateway")

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, &model.StoreError{Op: "connect", Err: err}
	}
	return &Session{
		Source: New(NewPgxQuerier(conn), rel, logger),
		close:  conn.Close,
	}, nil
}
