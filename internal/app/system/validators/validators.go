// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dalemusser/foodjournal/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the app's collections and attaches JSON-Schema
// validators where one is defined. Deployments that reject collMod (some
// DocumentDB versions) skip validation with an info log.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	specs := []struct {
		name   string
		schema bson.M
	}{
		{"profiles", profilesSchema()},
		{"groups", groupsSchema()},
		{"events", eventsSchema()},
		// Transactions cannot create collections on older servers, so these
		// exist up front even though they carry no validator.
		{"credentials", nil},
		{"login_records", nil},
		{"audit_events", nil},
	}

	var problems []string
	for _, c := range specs {
		if err := ensureCollection(ctx, db, c.name); err != nil {
			problems = append(problems, c.name+": "+err.Error())
			continue
		}
		if c.schema == nil {
			continue
		}
		err := setValidator(ctx, db, c.name, c.schema)
		switch {
		case err == nil:
			zap.L().Info("validator ensured", zap.String("collection", c.name))
		case unsupported(err):
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
		default:
			problems = append(problems, c.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ensureCollection creates name unless it already exists. A concurrent
// creator winning the race is not an error.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if commandErr(err, []int32{48}, "already exists", "namespace exists") {
			return nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

// unsupported reports a server that lacks collMod or schema validation.
func unsupported(err error) bool {
	return commandErr(err, []int32{59, 115}, "no such command", "not implemented", "not supported")
}

// commandErr matches a server error by code, or by message for drivers and
// proxies that do not surface a CommandError.
func commandErr(err error, codes []int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && slices.Contains(codes, ce.Code) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

func profilesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"display_name", "role"},
			"properties": bson.M{
				"display_name":       bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"display_name_ci":    bson.M{"bsonType": "string"},
				"email":              bson.M{"bsonType": "string"},
				"group_id":           bson.M{"bsonType": bson.A{"string", "null"}},
				"role":               bson.M{"enum": bson.A{string(models.RoleAdmin), string(models.RoleMember)}},
				"notification_token": bson.M{"bsonType": bson.A{"string", "null"}},
			},
		},
	}
}

// groupsSchema backs up the membership guards: a group always has at
// least one admin and one member.
func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "admin_ids", "member_ids"},
			"properties": bson.M{
				"name":       bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":    bson.M{"bsonType": "string", "minLength": 1},
				"admin_ids":  bson.M{"bsonType": "array", "minItems": 1, "uniqueItems": true, "items": bson.M{"bsonType": "string"}},
				"member_ids": bson.M{"bsonType": "array", "minItems": 1, "uniqueItems": true, "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func eventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "type", "timestamp", "user_id"},
			"properties": bson.M{
				"group_id":  bson.M{"bsonType": "string", "minLength": 1},
				"user_id":   bson.M{"bsonType": "string", "minLength": 1},
				"timestamp": bson.M{"bsonType": "date"},
				"type": bson.M{"enum": bson.A{
					string(models.EventFoodIntake),
					string(models.EventFridgeStorage),
					string(models.EventNotificationSent),
				}},
			},
		},
	}
}
