package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Vector is a custom type for a JSON column holding an embedding vector
type Vector []float64

// Scan implements the sql.Scanner interface
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
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
	return json.Unmarshal(bytes, v)
}

// Value implements the driver.Valuer interface
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return json.Marshal([]float64{})
	}
	return json.Marshal(v)
}

// PostmortemEmbedding stores the embedding vector for a published postmortem.
// At most one live row exists per postmortem; re-embedding overwrites the
// vector, source text and metadata in place and bumps Version.
type PostmortemEmbedding struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostmortemID uint      `gorm:"uniqueIndex;not null" json:"postmortem_id"`
	IncidentID   uint      `gorm:"index;not null" json:"incident_id"`
	Vector       Vector    `gorm:"type:text" json:"vector"`
	SourceText   string    `gorm:"type:text" json:"source_text"`
	Version      int       `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (PostmortemEmbedding) TableName() string {
	return "postmortem_embeddings"
}

// UpsertPostmortemEmbedding writes the embedding for a postmortem.
// The first write creates the row at version 1; subsequent writes overwrite
// in place and increment the version, never insert a duplicate.
func UpsertPostmortemEmbedding(db *gorm.DB, postmortemID, incidentID uint, vector Vector, sourceText string) (*PostmortemEmbedding, error) {
	var emb PostmortemEmbedding
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("postmortem_id = ?", postmortemID).First(&emb).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			emb = PostmortemEmbedding{
				PostmortemID: postmortemID,
				IncidentID:   incidentID,
				Vector:       vector,
				SourceText:   sourceText,
				Version:      1,
			}
			return tx.Create(&emb).Error
		}
		if err != nil {
			return err
		}
		emb.IncidentID = incidentID
		emb.Vector = vector
		emb.SourceText = sourceText
		emb.Version++
		return tx.Save(&emb).Error
	})
	if err != nil {
		return nil, err
	}
	return &emb, nil
}

// ListPublishedEmbeddings returns the embeddings of all published postmortems.
// Draft postmortems never take part in retrieval.
func ListPublishedEmbeddings(db *gorm.DB) ([]PostmortemEmbedding, error) {
	var embeddings []PostmortemEmbedding
	err := db.
		Joins("JOIN postmortems ON postmortems.id = postmortem_embeddings.postmortem_id").
		Where("postmortems.status = ?", PostmortemStatusPublished).
		Order("postmortem_embeddings.id ASC").
		Find(&embeddings).Error
	return embeddings, err
}
