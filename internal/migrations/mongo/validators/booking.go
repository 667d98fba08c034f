package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"user_id",
			"show_id",
			"seats_booked",
			"total_amount",
			"currency",
			"status",
			"is_paid",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"show_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"seats_booked": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"seat_id", "tier", "price"},
					"properties": bson.M{
						"seat_id": bson.M{
							"bsonType": "string",
							"pattern":  "^[A-Z]{1,2}[0-9]{1,3}$",
						},
						"tier": bson.M{
							"bsonType": "string",
						},
						"price": bson.M{
							"bsonType": "number",
							"minimum":  0,
						},
					},
				},
			},

			"total_amount": bson.M{
				"bsonType": "number",
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
				},
			},

			"is_paid": bson.M{
				"bsonType": "bool",
			},

			"payment_session_id": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"paid_at": bson.M{
				"bsonType": "date",
			},

			"cancelled_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
