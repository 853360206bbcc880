package database

import "time"

// LLMSettings stores the completion/embedding provider configuration.
// A single row exists; when it is not configured the recommendation
// subsystem reports itself unavailable instead of erroring.
type LLMSettings struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	APIKey          string    `gorm:"type:text" json:"-"`
	BaseURL         string    `gorm:"type:text" json:"base_url"` // Custom API base URL (Azure, local LLMs, etc.)
	CompletionModel string    `gorm:"type:varchar(100);default:'gpt-4o-mini'" json:"completion_model"`
	EmbeddingModel  string    `gorm:"type:varchar(100);default:'text-embedding-3-small'" json:"embedding_model"`
	Enabled         bool      `gorm:"default:false" json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (LLMSettings) TableName() string {
	return "llm_settings"
}

// IsConfigured returns true if an API key is set
func (s *LLMSettings) IsConfigured() bool {
	return s.APIKey != ""
}

// IsActive returns true if the provider is enabled and configured
func (s *LLMSettings) IsActive() bool {
	return s.Enabled && s.IsConfigured()
}

// GetLLMSettings retrieves LLM provider settings from the database
func GetLLMSettings() (*LLMSettings, error) {
	var settings LLMSettings
	if err := DB.First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateLLMSettings updates LLM provider settings in the database
func UpdateLLMSettings(settings *LLMSettings) error {
	return DB.Model(&LLMSettings{}).Where("id = ?", settings.ID).Updates(settings).Error
}
