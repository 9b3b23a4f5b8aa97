package db

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/bookrental/internal/models"
	cfgpkg "github.com/fatflowers/bookrental/pkg/config"
	gormzap "github.com/fatflowers/bookrental/pkg/gormlog"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := Open(cfg.Database.DSN, l)
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

// Open connects with the settings every caller relies on: zap logging and
// driver errors translated to gorm.ErrDuplicatedKey and friends.
func Open(dsn string, l *zap.SugaredLogger) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormzap.New(l),
		TranslateError: true,
	})
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// partialIndexes enforce the single-active-entitlement rules. Inserts that
// violate them fail with gorm.ErrDuplicatedKey.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_book_rental_active ON book_rental (user_id, book_id) WHERE status = 'active'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_user_subscription_active ON user_subscription (user_id) WHERE status = 'active'`,
}

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Book{},
		&models.RentalPlan{},
		&models.BookRental{},
		&models.RentalHistory{},
		&models.UserSubscription{},
		&models.SubscriptionLog{},
		&models.PaymentCallbackLog{},
		&models.Notification{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			l.Errorf("create index failed: %v", err)
			return fmt.Errorf("failed to create partial index: %w", err)
		}
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
