package validators

import "go.mongodb.org/mongo-driver/bson"

var seatTierSchema = bson.M{
	"bsonType": "object",
	"required": []string{"name", "price", "rows"},
	"properties": bson.M{
		"name": bson.M{
			"bsonType":  "string",
			"minLength": 1,
		},
		"price": bson.M{
			"bsonType": "number",
			"minimum":  0,
		},
		"rows": bson.M{
			"bsonType": "array",
			"items": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z]{1,2}$",
			},
		},
		"seats_per_row": bson.M{
			"bsonType": []string{"int", "long"},
			"minimum":  0,
		},
		// Seat id to "LOCKED:<booking id>" or the owning user id.
		"occupied_seats": bson.M{
			"bsonType": "object",
			"additionalProperties": bson.M{
				"bsonType": "string",
			},
		},
	},
}

var ShowValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"movie_id",
			"theatre_id",
			"screen_id",
			"start_time",
			"is_active",
			"seat_tiers",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},
			"movie_id": bson.M{
				"bsonType": "string",
			},
			"theatre_id": bson.M{
				"bsonType": "string",
			},
			"screen_id": bson.M{
				"bsonType": "string",
			},
			"start_time": bson.M{
				"bsonType": "date",
			},
			"is_active": bson.M{
				"bsonType": "bool",
			},
			"total_seats": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"occupied_count": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"seat_tiers": bson.M{
				"bsonType": "array",
				"items":    seatTierSchema,
			},
		},
	},
}
