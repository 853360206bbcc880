package database

import (
	"testing"
)

func TestUpsertPostmortemEmbedding(t *testing.T) {
	db := openTestDB(t)
	incident := createIncident(t, db)
	pm := createPostmortem(t, db, incident.ID, PostmortemStatusPublished)

	first, err := UpsertPostmortemEmbedding(db, pm.ID, incident.ID, Vector{0.1, 0.2}, "v1 text")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("Version = %d, want 1", first.Version)
	}

	second, err := UpsertPostmortemEmbedding(db, pm.ID, incident.ID, Vector{0.9, 0.8}, "v2 text")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("Version = %d, want 2", second.Version)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a second row: %d and %d", first.ID, second.ID)
	}
	if second.SourceText != "v2 text" {
		t.Errorf("SourceText = %q, want overwritten", second.SourceText)
	}

	var loaded PostmortemEmbedding
	if err := db.Where("postmortem_id = ?", pm.ID).First(&loaded).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(loaded.Vector) != 2 || loaded.Vector[0] != 0.9 {
		t.Errorf("Vector = %v, want [0.9 0.8]", loaded.Vector)
	}

	var count int64
	db.Model(&PostmortemEmbedding{}).Where("postmortem_id = ?", pm.ID).Count(&count)
	if count != 1 {
		t.Errorf("embedding rows = %d, want 1", count)
	}
}

func TestListPublishedEmbeddings(t *testing.T) {
	db := openTestDB(t)

	published := createIncident(t, db)
	publishedPM := createPostmortem(t, db, published.ID, PostmortemStatusPublished)
	if _, err := UpsertPostmortemEmbedding(db, publishedPM.ID, published.ID, Vector{1, 0}, "published"); err != nil {
		t.Fatalf("seed published: %v", err)
	}

	// A draft with an embedding must never appear in retrieval. This state
	// can arise when a published postmortem is edited back to draft.
	draft := createIncident(t, db)
	draftPM := createPostmortem(t, db, draft.ID, PostmortemStatusDraft)
	if _, err := UpsertPostmortemEmbedding(db, draftPM.ID, draft.ID, Vector{0, 1}, "draft"); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	embeddings, err := ListPublishedEmbeddings(db)
	if err != nil {
		t.Fatalf("ListPublishedEmbeddings: %v", err)
	}
	if len(embeddings) != 1 {
		t.Fatalf("len = %d, want 1 (draft excluded)", len(embeddings))
	}
	if embeddings[0].IncidentID != published.ID {
		t.Errorf("IncidentID = %d, want %d", embeddings[0].IncidentID, published.ID)
	}
}

func TestListPublishedEmbeddings_StableOrder(t *testing.T) {
	db := openTestDB(t)
	var want []uint
	for i := 0; i < 3; i++ {
		incident := createIncident(t, db)
		pm := createPostmortem(t, db, incident.ID, PostmortemStatusPublished)
		emb, err := UpsertPostmortemEmbedding(db, pm.ID, incident.ID, Vector{float64(i)}, "t")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		want = append(want, emb.ID)
	}

	embeddings, err := ListPublishedEmbeddings(db)
	if err != nil {
		t.Fatalf("ListPublishedEmbeddings: %v", err)
	}
	for i, emb := range embeddings {
		if emb.ID != want[i] {
			t.Errorf("position %d has id %d, want %d", i, emb.ID, want[i])
		}
	}
}

func TestVector_ValueNilAsEmptyArray(t *testing.T) {
	var v Vector
	raw, err := v.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if string(raw.([]byte)) != "[]" {
		t.Errorf("nil vector serialized as %s, want []", raw)
	}
}
