package validators

import "go.mongodb.org/mongo-driver/bson"

var PanelValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"slot_type",
			"panel_type",
			"interview_mode",
			"time",
			"end_time",
			"panel_duration",
			"slot_count",
			"slot_duration",
			"gap_between_slots",
			"available_time",
			"status",
			"version",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":               bson.M{"bsonType": "objectId"},
			"slot_type":         bson.M{"bsonType": "string", "enum": []string{"GD", "PI"}},
			"panel_type":        bson.M{"bsonType": "string"},
			"interview_mode":    bson.M{"bsonType": "string"},
			"interview_list_id": bson.M{"bsonType": "string"},
			"panelists":         bson.M{"bsonType": "array"},
			"time":              bson.M{"bsonType": "date"},
			"end_time":          bson.M{"bsonType": "date"},
			"panel_duration":    bson.M{"bsonType": intType, "minimum": 1},
			"slot_count":        bson.M{"bsonType": intType, "minimum": 0},
			"slot_duration":     bson.M{"bsonType": intType, "minimum": 1},
			"gap_between_slots": bson.M{"bsonType": intType, "minimum": 0},
			"available_time":    bson.M{"bsonType": intType, "minimum": 0},
			"status":            bson.M{"bsonType": "string", "enum": []string{"draft", "published"}},
			"version":           bson.M{"bsonType": intType, "minimum": 1},
		},
	},
}

var LockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "owner", "expires_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"owner":      bson.M{"bsonType": "string"},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
