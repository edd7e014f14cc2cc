package validators

import "go.mongodb.org/mongo-driver/bson"

var intType = bson.A{"int", "long"}

var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"slot_type",
			"interview_mode",
			"time",
			"end_time",
			"slot_duration",
			"status",
			"available_slot",
			"user_limit",
			"booked_user",
			"take_slot",
			"version",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"slot_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"GD", "PI"},
			},

			"interview_mode": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 50,
			},

			"time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"slot_duration": bson.M{
				"bsonType": intType,
				"minimum":  1,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"draft", "published"},
			},

			"available_slot": bson.M{
				"bsonType": "string",
				"enum":     []string{"Open", "Closed"},
			},

			"user_limit": bson.M{
				"bsonType": intType,
				"minimum":  2,
				"maximum":  10,
			},

			"booked_user": bson.M{
				"bsonType": intType,
				"minimum":  0,
			},

			"panel_id": bson.M{
				"bsonType": bson.A{"string", "null"},
			},

			"panelists": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string"},
			},

			"take_slot": bson.M{
				"bsonType": "object",
				"required": []string{"application", "application_ids", "panelist", "panelist_ids"},
				"properties": bson.M{
					"application":     bson.M{"bsonType": "bool"},
					"application_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
					"panelist":        bson.M{"bsonType": "bool"},
					"panelist_ids": bson.M{
						"bsonType": "array",
						"maxItems": 2,
						"items":    bson.M{"bsonType": "string"},
					},
				},
			},

			"version": bson.M{
				"bsonType": intType,
				"minimum":  1,
			},
		},
	},
}
