package validators

import "go.mongodb.org/mongo-driver/bson"

var ExpiryTaskValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"booking_id",
			"run_at",
			"status",
			"attempts",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"booking_id": bson.M{
				"bsonType": "string",
			},
			"show_id": bson.M{
				"bsonType": "string",
			},
			"seat_ids": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string"},
			},
			"run_at": bson.M{
				"bsonType": "date",
			},
			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"running",
					"done",
					"failed",
				},
			},
			"attempts": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"lease_until": bson.M{
				"bsonType": "date",
			},
			"last_error": bson.M{
				"bsonType": "string",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
