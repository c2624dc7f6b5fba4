package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/models"
)

const usersCollection = "users"

// Collections hands out collections of the shared database.
// *storage.Manager satisfies it.
type Collections interface {
	Collection(ctx context.Context, name string) (*mongo.Collection, error)
}

type MongoProfileService struct {
	db  Collections
	log *zap.Logger
	now func() time.Time
}

var _ ProfileService = (*MongoProfileService)(nil)

func NewMongoProfileService(db Collections, log *zap.Logger) *MongoProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MongoProfileService{db: db, log: log.Named("profiles"), now: time.Now}
}

// EnsureIndexes creates the unique index that makes one profile per
// Firebase UID hold under concurrent syncs.
func (s *MongoProfileService) EnsureIndexes(ctx context.Context) error {
	col, err := s.db.Collection(ctx, usersCollection)
	if err != nil {
		return fmt.Errorf("profiles: ensure indexes: %w", err)
	}
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "firebaseUid", Value: 1}},
		Options: options.Index().SetName("firebaseUid_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("profiles: ensure indexes: %w", err)
	}
	return nil
}

func (s *MongoProfileService) FindByIdentity(ctx context.Context, firebaseUID string) (*models.Profile, error) {
	const op = "profiles.FindByIdentity"

	col, err := s.db.Collection(ctx, usersCollection)
	if err != nil {
		return nil, s.fail(op, firebaseUID, err)
	}

	var prof models.Profile
	err = col.FindOne(ctx, bson.M{"firebaseUid": firebaseUID}).Decode(&prof)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.log.Debug("profile not found", zap.String("uid", firebaseUID))
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, s.fail(op, firebaseUID, err)
	}
	return &prof, nil
}

// Create inserts the profile and relies on the unique index to detect an
// existing one; a duplicate key is answered with the stored profile.
func (s *MongoProfileService) Create(ctx context.Context, in models.CreateProfileInput) (*models.Profile, bool, error) {
	const op = "profiles.Create"

	col, err := s.db.Collection(ctx, usersCollection)
	if err != nil {
		return nil, false, s.fail(op, in.FirebaseUID, err)
	}

	now := s.timestamp()
	doc := models.Profile{
		FirebaseUID: in.FirebaseUID,
		Email:       optional(in.Email),
		Role:        in.Role,
		FullName:    in.FullName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		existing, err := s.FindByIdentity(ctx, in.FirebaseUID)
		if err != nil {
			return nil, false, err
		}
		s.log.Info("profile already exists, returning existing", zap.String("uid", in.FirebaseUID))
		return existing, false, nil
	}
	if err != nil {
		return nil, false, s.fail(op, in.FirebaseUID, err)
	}

	var created models.Profile
	if err := col.FindOne(ctx, bson.M{"_id": res.InsertedID}).Decode(&created); err != nil {
		return nil, false, s.fail(op, in.FirebaseUID, fmt.Errorf("re-read inserted profile: %w", err))
	}
	s.log.Info("profile created", zap.String("uid", in.FirebaseUID), zap.String("id", created.ID.Hex()))
	return &created, true, nil
}

// UpsertAdmin writes an admin profile for the bootstrap command. Identity,
// role and name are always set; optional fields and createdAt only on insert.
func (s *MongoProfileService) UpsertAdmin(ctx context.Context, firebaseUID, email, fullName string) (*models.Profile, bool, error) {
	const op = "profiles.UpsertAdmin"

	col, err := s.db.Collection(ctx, usersCollection)
	if err != nil {
		return nil, false, s.fail(op, firebaseUID, err)
	}

	now := s.timestamp()
	update := bson.M{
		"$set": bson.M{
			"firebaseUid": firebaseUID,
			"email":       optional(email),
			"role":        models.RoleAdmin,
			"fullName":    fullName,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"dateOfBirth":       nil,
			"phone":             nil,
			"emergencyContact":  nil,
			"medicalConditions": nil,
			"profilePicture":    nil,
			"createdAt":         now,
		},
	}

	res, err := col.UpdateOne(ctx, bson.M{"firebaseUid": firebaseUID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, false, s.fail(op, firebaseUID, err)
	}

	prof, err := s.FindByIdentity(ctx, firebaseUID)
	if err != nil {
		return nil, false, err
	}
	return prof, res.UpsertedCount > 0, nil
}

// timestamp is now in UTC at Mongo's millisecond precision.
func (s *MongoProfileService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *MongoProfileService) fail(op, uid string, err error) error {
	s.log.Error("profile store failure", zap.String("op", op), zap.String("uid", uid), zap.Error(err))
	return fmt.Errorf("%s: %w", op, ErrDatabase)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
