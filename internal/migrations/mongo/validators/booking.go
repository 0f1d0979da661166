package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingRequiredFields are the fields every stored booking carries.
var BookingRequiredFields = []string{
	"name",
	"email",
	"service_type",
	"issue_description",
	"preferred_datetime",
	"status",
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             BookingRequiredFields,
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType": "string",
			},

			"email": bson.M{
				"bsonType": "string",
			},

			"phone": bson.M{
				"bsonType": []string{"string", "null"},
			},

			"service_type": bson.M{
				"bsonType": "string",
			},

			"issue_description": bson.M{
				"bsonType": "string",
			},

			"preferred_datetime": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"bsonType": "string",
			},

			"meeting_link": bson.M{
				"bsonType": []string{"string", "null"},
			},
		},
	},
}
