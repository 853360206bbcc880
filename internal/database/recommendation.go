package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// RecommendationPayload is the synthesized recommendation for one candidate
type RecommendationPayload struct {
	Title     string   `json:"title"`
	Rationale string   `json:"rationale"`
	Actions   []string `json:"actions"`
}

// Scan implements the sql.Scanner interface
func (p *RecommendationPayload) Scan(value interface{}) error {
	if value == nil {
		*p = RecommendationPayload{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		bytes = []byte(s)
	}
	return json.Unmarshal(bytes, p)
}

// Value implements the driver.Valuer interface
func (p RecommendationPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// IncidentRecommendation is one cached "similar past incident" row.
// Rows are keyed by (query incident, recommended incident) and considered
// fresh for a fixed window from UpdatedAt. Stale rows stay in place until
// the next refresh replaces the whole set for the query incident.
type IncidentRecommendation struct {
	ID                    uint                  `gorm:"primaryKey" json:"id"`
	QueryIncidentID       uint                  `gorm:"not null;index:idx_reco_pair,unique" json:"query_incident_id"`
	RecommendedIncidentID uint                  `gorm:"not null;index:idx_reco_pair,unique" json:"recommended_incident_id"`
	SimilarityScore       float64               `json:"similarity_score"`
	Payload               RecommendationPayload `gorm:"type:text" json:"payload"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

func (IncidentRecommendation) TableName() string {
	return "incident_recommendations"
}

// GetFreshRecommendations returns cached rows for an incident whose UpdatedAt
// falls inside the freshness window, ordered by descending similarity.
// An empty result means cache miss, not "no similar incidents".
func GetFreshRecommendations(db *gorm.DB, queryIncidentID uint, window time.Duration) ([]IncidentRecommendation, error) {
	cutoff := time.Now().Add(-window)
	var rows []IncidentRecommendation
	err := db.Where("query_incident_id = ? AND updated_at > ?", queryIncidentID, cutoff).
		Order("similarity_score DESC, id ASC").
		Find(&rows).Error
	return rows, err
}

// ReplaceRecommendations swaps the full cached set for an incident.
// Delete and insert run in one transaction so a concurrent reader sees
// either the complete old set or the complete new set, never a mix, and a
// failed insert leaves the old set intact.
func ReplaceRecommendations(db *gorm.DB, queryIncidentID uint, rows []IncidentRecommendation) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("query_incident_id = ?", queryIncidentID).
			Delete(&IncidentRecommendation{}).Error; err != nil {
			return err
		}
		now := time.Now()
		for i := range rows {
			rows[i].ID = 0
			rows[i].QueryIncidentID = queryIncidentID
			rows[i].CreatedAt = now
			rows[i].UpdatedAt = now
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}
