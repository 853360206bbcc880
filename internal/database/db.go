package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(
		&LLMSettings{},
		&SlackSettings{},
		&Incident{},
		&Postmortem{},
		&PostmortemEmbedding{},
		&IncidentRecommendation{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults() error {
	log.Println("Initializing default database records...")

	var count int64
	DB.Model(&LLMSettings{}).Count(&count)
	if count == 0 {
		defaults := &LLMSettings{
			CompletionModel: "gpt-4o-mini",
			EmbeddingModel:  "text-embedding-3-small",
			Enabled:         false, // Disabled by default until an API key is configured
		}
		if err := DB.Create(defaults).Error; err != nil {
			return fmt.Errorf("failed to create default LLM settings: %w", err)
		}
		log.Println("Created default LLM settings (disabled)")
	}

	DB.Model(&SlackSettings{}).Count(&count)
	if count == 0 {
		if err := DB.Create(&SlackSettings{Enabled: false}).Error; err != nil {
			return fmt.Errorf("failed to create default slack settings: %w", err)
		}
		log.Println("Created default Slack settings (disabled)")
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
