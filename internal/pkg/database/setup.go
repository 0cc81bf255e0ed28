package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

func GetDB() *gorm.DB {
	return DB
}

// SetupDatabase connects using DB_DRIVER (mysql or sqlite), migrates the
// schema and seeds default settings and templates.
func SetupDatabase() {
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = open()
		if err == nil {
			if err = Migrate(DB); err != nil {
				panic(err)
			}
			if err = Seed(DB); err != nil {
				panic(err)
			}
			return
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	panic(err)
}

func open() (*gorm.DB, error) {
	if env.GetEnv("DB_DRIVER", "mysql") == "sqlite" {
		return OpenSQLite(env.GetEnv("DB_PATH", "data/portal.db"))
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
	return gorm.Open(mysql.New(mysql.Config{
		DSN:                       dsn,
		DefaultStringSize:         256,
		SkipInitializeWithVersion: false,
	}), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

// OpenSQLite opens a file-backed SQLite database. Used for local runs and tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

// Migrate creates or updates every table the portal uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Order{},
		&models.Subscription{},
		&models.Invoice{},
		&models.PaymentAttempt{},
		&models.Notification{},
		&models.EmailTemplate{},
		&models.Setting{},
		&models.Ticket{},
		&models.TicketMessage{},
		&models.FormTemplate{},
	)
}

// Seed inserts default settings and email templates that are not stored yet.
func Seed(db *gorm.DB) error {
	repos := repository.NewRepositories(db)
	if err := repos.Setting.EnsureDefaults(models.DefaultSettings); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if err := repos.Template.EnsureDefaults(models.DefaultEmailTemplates); err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}
	return nil
}
