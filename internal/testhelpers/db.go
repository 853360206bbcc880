package testhelpers

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erikwj/sre-platform/internal/database"
)

// SetupTestDB opens an in-memory SQLite database with the full schema
// migrated and installs it as the global database instance for the duration
// of the test. The previous global is restored on cleanup.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	// Every session must share the one in-memory database; a second pool
	// connection would get its own empty one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&database.LLMSettings{},
		&database.SlackSettings{},
		&database.Incident{},
		&database.Postmortem{},
		&database.PostmortemEmbedding{},
		&database.IncidentRecommendation{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = previous
	})

	return db
}

// SeedIncident inserts an incident and returns it with its assigned ID
func SeedIncident(t *testing.T, db *gorm.DB, incident database.Incident) database.Incident {
	t.Helper()
	if err := db.Create(&incident).Error; err != nil {
		t.Fatalf("failed to seed incident %s: %v", incident.Number, err)
	}
	return incident
}

// SeedPostmortem inserts a postmortem and returns it with its assigned ID
func SeedPostmortem(t *testing.T, db *gorm.DB, pm database.Postmortem) database.Postmortem {
	t.Helper()
	if err := db.Create(&pm).Error; err != nil {
		t.Fatalf("failed to seed postmortem for incident %d: %v", pm.IncidentID, err)
	}
	return pm
}
