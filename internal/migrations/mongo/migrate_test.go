package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_EveryCollectionHasSchemaAndIndexes(t *testing.T) {
	defs := Collections()

	for _, name := range []string{"Shows", "Screens", "Bookings", "Expiry_tasks"} {
		def, ok := defs[name]
		if !ok {
			t.Errorf("collection %s is not migrated", name)
			continue
		}
		if _, ok := def.Validator["$jsonSchema"]; !ok {
			t.Errorf("collection %s has no $jsonSchema validator", name)
		}
		if len(def.Indexes) == 0 {
			t.Errorf("collection %s has no indexes", name)
		}
	}
}

func TestBookingsIndexes_PaymentSessionIsUniqueAndSparse(t *testing.T) {
	for _, idx := range BookingsIndexes {
		keys := idx.Keys.(bson.D)
		if keys[0].Key != "payment_session_id" {
			continue
		}
		if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
			t.Error("payment_session_id index must be unique")
		}
		if idx.Options == nil || idx.Options.Sparse == nil || !*idx.Options.Sparse {
			t.Error("payment_session_id index must be sparse")
		}
		return
	}
	t.Fatal("no payment_session_id index")
}
