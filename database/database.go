package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

type Database struct {
	projectRepo  *ProjectRepo
	feedbackRepo *FeedbackRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		projectRepo:  NewProjectRepo(db),
		feedbackRepo: NewFeedbackRepo(db),
	}
}

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) FeedbackRepo() *FeedbackRepo {
	return d.feedbackRepo
}

// Options describes how to reach the primary and any read replicas.
type Options struct {
	DSN           string
	ReplicaDSNs   []string
	SlowThreshold time.Duration
}

// Open connects to Postgres. Supabase's pooler runs in transaction mode, so
// prepared statements stay off.
func Open(opts Options) (*gorm.DB, error) {
	slow := opts.SlowThreshold
	if slow == 0 {
		slow = 10 * time.Second
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             slow,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  opts.DSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
		Logger:         newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if len(opts.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(opts.ReplicaDSNs))
		for _, dsn := range opts.ReplicaDSNs {
			replicas = append(replicas, postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).SetMaxOpenConns(20).SetConnMaxIdleTime(5 * time.Minute)
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("register read replicas: %w", err)
		}
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("test database connection: %w", err)
	}
	return db, nil
}

// SupabaseDSN builds a libpq connection string for a Supabase Postgres host.
func SupabaseDSN(host, user, password, name, port string) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
		host, user, password, name, port)
}
