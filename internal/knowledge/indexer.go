// Package knowledge maintains the postmortem embedding index and serves
// "similar past incidents" recommendations from it.
package knowledge

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/erikwj/sre-platform/internal/database"
	"github.com/erikwj/sre-platform/internal/llm"
)

// Indexer turns published postmortems into embedding vectors and keeps
// exactly one versioned embedding per postmortem.
type Indexer struct {
	db        *gorm.DB
	providers llm.Factory
}

// NewIndexer creates an embedding indexer
func NewIndexer(db *gorm.DB, providers llm.Factory) *Indexer {
	return &Indexer{db: db, providers: providers}
}

// BuildCanonicalText renders the content that gets embedded. The field
// order is fixed so re-embedding unchanged content is deterministic.
func BuildCanonicalText(incident *database.Incident, pm *database.Postmortem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incident %s: %s\n", incident.Number, incident.Title)
	fmt.Fprintf(&b, "Severity: %s\n", incident.Severity)
	writeIfSet(&b, "Description", incident.Description)
	writeIfSet(&b, "Business Impact", pm.BusinessImpactDescription)
	writeIfSet(&b, "Problem Statement", incident.ProblemStatement)
	writeIfSet(&b, "Causes", incident.Causes)
	writeIfSet(&b, "Mitigation", pm.MitigationDescription)
	for _, factor := range pm.CausalAnalysis {
		fmt.Fprintf(&b, "%s: %s — %s\n", factor.InterceptionLayer, factor.Cause, factor.Description)
	}
	return b.String()
}

func writeIfSet(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

// IndexPostmortem embeds the postmortem of the given incident and upserts
// the result. Only published postmortems are indexable; the first index
// creates the row, later calls overwrite and bump the version.
//
// Callers run this after (not inside) the publish transaction: an
// embedding-provider failure never blocks or rolls back the publish, and
// the same call retries a failed index without re-publishing.
func (ix *Indexer) IndexPostmortem(ctx context.Context, incidentID uint) (*database.PostmortemEmbedding, error) {
	pm, err := database.GetPostmortemByIncidentID(ix.db, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load postmortem for incident %d: %w", incidentID, err)
	}
	if pm.Status != database.PostmortemStatusPublished {
		return nil, fmt.Errorf("postmortem for incident %d is not published", incidentID)
	}
	incident, err := database.GetIncidentByID(ix.db, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load incident %d: %w", incidentID, err)
	}

	embeddings, err := ix.providers.Embeddings()
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	sourceText := BuildCanonicalText(incident, pm)
	vector, err := embeddings.Embed(ctx, sourceText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed postmortem %d: %w", pm.ID, err)
	}

	emb, err := database.UpsertPostmortemEmbedding(ix.db, pm.ID, incidentID, vector, sourceText)
	if err != nil {
		return nil, fmt.Errorf("failed to store embedding for postmortem %d: %w", pm.ID, err)
	}
	log.Printf("Indexer: postmortem %d indexed (version %d, dim %d)", pm.ID, emb.Version, len(emb.Vector))
	return emb, nil
}
