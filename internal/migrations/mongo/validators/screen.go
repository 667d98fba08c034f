package validators

import "go.mongodb.org/mongo-driver/bson"

var ScreenValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"theatre_id", "name", "layout"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},
			"theatre_id": bson.M{
				"bsonType": "string",
			},
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"layout": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "string",
					},
				},
			},
			"seat_tiers": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"name", "price"},
					"properties": bson.M{
						"name":  bson.M{"bsonType": "string"},
						"price": bson.M{"bsonType": "number", "minimum": 0},
						"rows": bson.M{
							"bsonType": "array",
							"items":    bson.M{"bsonType": "string"},
						},
					},
				},
			},
		},
	},
}
