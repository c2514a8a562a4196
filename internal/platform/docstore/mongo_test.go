package docstore

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestIndexes_VisitDateIndexNamed(t *testing.T) {
	found := false
	for _, model := range Indexes()[VisitsCollection] {
		if model.Options != nil && model.Options.Name != nil && *model.Options.Name == VisitDateIndex {
			keys := model.Keys.(bson.D)
			if len(keys) != 1 || keys[0].Key != "visitDate" {
				t.Errorf("unexpected keys for %s: %v", VisitDateIndex, keys)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an index named %s on %s", VisitDateIndex, VisitsCollection)
	}
}

func TestIndexes_PatientSearchIndex(t *testing.T) {
	models := Indexes()[PatientsCollection]
	if len(models) == 0 {
		t.Fatal("expected patient indexes")
	}
	keys := models[0].Keys.(bson.D)
	if keys[0].Key != "name_normalized" {
		t.Errorf("expected name_normalized index first, got %s", keys[0].Key)
	}
}
