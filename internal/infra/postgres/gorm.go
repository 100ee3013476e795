package postgres

import (
	"fmt"
	"time"

	"github.com/sifan077/ShortcutURL/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const defaultConnMaxLifetime = 5 * time.Minute

// NewGorm returns a gorm.DB configured for the application's Postgres instance.
// Driver errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func NewGorm(cfg config.PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(ConnString(cfg)), &gorm.Config{
		Logger: newGormLogger(log),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: retrieve sql db: %w", err)
	}

	lifetime, err := parseDuration(cfg.MaxConnLifetime, defaultConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("postgres: max_conn_lifetime: %w", err)
	}
	sqlDB.SetConnMaxLifetime(lifetime)
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		sqlDB.SetMaxIdleConns(int(cfg.MinConns))
	}

	return db, nil
}

// Close releases the connections held by db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
