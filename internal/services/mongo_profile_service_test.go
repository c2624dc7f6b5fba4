package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/models"
)

const ns = "camp-manager.users"

type staticDB struct{ db *mongo.Database }

func (s staticDB) Collection(_ context.Context, name string) (*mongo.Collection, error) {
	return s.db.Collection(name), nil
}

type brokenDB struct{ err error }

func (b brokenDB) Collection(context.Context, string) (*mongo.Collection, error) {
	return nil, b.err
}

var fixedNow = time.Date(2026, 6, 1, 9, 30, 0, 123456789, time.UTC)

func newTestService(mt *mtest.T) *MongoProfileService {
	s := NewMongoProfileService(staticDB{mt.DB}, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func profileDoc(id primitive.ObjectID, uid string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "firebaseUid", Value: uid},
		{Key: "email", Value: "jane@camp.example.com"},
		{Key: "role", Value: "camper"},
		{Key: "fullName", Value: "Jane Doe"},
		{Key: "dateOfBirth", Value: nil},
		{Key: "phone", Value: nil},
		{Key: "emergencyContact", Value: nil},
		{Key: "medicalConditions", Value: nil},
		{Key: "profilePicture", Value: nil},
		{Key: "createdAt", Value: primitive.NewDateTimeFromTime(created)},
		{Key: "updatedAt", Value: primitive.NewDateTimeFromTime(created)},
	}
}

func TestMongoProfileService_FindByIdentity(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		s := newTestService(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, profileDoc(id, "uid-1", fixedNow)))

		prof, err := s.FindByIdentity(context.Background(), "uid-1")
		require.NoError(mt, err)
		require.Equal(mt, id, prof.ID)
		require.Equal(mt, models.RoleCamper, prof.Role)
		require.Equal(mt, "Jane Doe", prof.FullName)
		require.NotNil(mt, prof.Email)
		require.Nil(mt, prof.DateOfBirth)
		require.Nil(mt, prof.Phone)
	})

	mt.Run("not found", func(mt *mtest.T) {
		s := newTestService(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		prof, err := s.FindByIdentity(context.Background(), "uid-missing")
		require.ErrorIs(mt, err, ErrProfileNotFound)
		require.Nil(mt, prof)
	})

	mt.Run("driver error is generic", func(mt *mtest.T) {
		s := newTestService(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "secret driver detail",
		}))

		_, err := s.FindByIdentity(context.Background(), "uid-1")
		require.ErrorIs(mt, err, ErrDatabase)
		require.NotContains(mt, err.Error(), "secret driver detail")
	})
}

func TestMongoProfileService_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("new profile", func(mt *mtest.T) {
		s := newTestService(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, profileDoc(id, "uid-1", fixedNow)),
		)

		prof, created, err := s.Create(context.Background(), models.CreateProfileInput{
			FirebaseUID: "uid-1",
			Email:       "jane@camp.example.com",
			Role:        models.RoleCamper,
			FullName:    "Jane Doe",
		})
		require.NoError(mt, err)
		require.True(mt, created)
		require.Equal(mt, id, prof.ID)

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 2)
		require.Equal(mt, "insert", started[0].CommandName)

		docs := started[0].Command.Lookup("documents").Array()
		values, err := docs.Values()
		require.NoError(mt, err)
		require.Len(mt, values, 1)
		inserted := values[0].Document()
		require.Equal(mt, "uid-1", inserted.Lookup("firebaseUid").StringValue())
		require.Equal(mt, "camper", inserted.Lookup("role").StringValue())
		require.Equal(mt, bson.TypeNull, inserted.Lookup("phone").Type)
		require.Equal(mt, bson.TypeNull, inserted.Lookup("dateOfBirth").Type)
		createdAt := inserted.Lookup("createdAt").Time().UTC()
		require.Equal(mt, fixedNow.Truncate(time.Millisecond), createdAt)
		require.Equal(mt, createdAt, inserted.Lookup("updatedAt").Time().UTC())
	})

	mt.Run("empty email stored as null", func(mt *mtest.T) {
		s := newTestService(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, profileDoc(primitive.NewObjectID(), "uid-2", fixedNow)),
		)

		_, _, err := s.Create(context.Background(), models.CreateProfileInput{
			FirebaseUID: "uid-2", Role: models.RoleAdmin, FullName: "Ada Admin",
		})
		require.NoError(mt, err)

		values, err := mt.GetStartedEvent().Command.Lookup("documents").Array().Values()
		require.NoError(mt, err)
		require.Equal(mt, bson.TypeNull, values[0].Document().Lookup("email").Type)
	})

	mt.Run("duplicate returns existing", func(mt *mtest.T) {
		s := newTestService(mt)
		id := primitive.NewObjectID()
		earlier := fixedNow.Add(-48 * time.Hour)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "E11000 duplicate key error collection: camp-manager.users index: firebaseUid_unique",
			}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, profileDoc(id, "uid-1", earlier)),
		)

		prof, created, err := s.Create(context.Background(), models.CreateProfileInput{
			FirebaseUID: "uid-1", Role: models.RoleCamper, FullName: "Jane Doe",
		})
		require.NoError(mt, err)
		require.False(mt, created)
		require.Equal(mt, id, prof.ID)
		require.True(mt, prof.CreatedAt.Equal(earlier.Truncate(time.Millisecond)))
	})

	mt.Run("insert failure is generic", func(mt *mtest.T) {
		s := newTestService(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 91, Message: "shutdown in progress"}))

		_, _, err := s.Create(context.Background(), models.CreateProfileInput{
			FirebaseUID: "uid-1", Role: models.RoleCamper, FullName: "Jane Doe",
		})
		require.ErrorIs(mt, err, ErrDatabase)
	})

	mt.Run("re-read missing is an error", func(mt *mtest.T) {
		s := newTestService(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		_, _, err := s.Create(context.Background(), models.CreateProfileInput{
			FirebaseUID: "uid-1", Role: models.RoleCamper, FullName: "Jane Doe",
		})
		require.ErrorIs(mt, err, ErrDatabase)
	})
}

func TestMongoProfileService_UpsertAdmin(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserted", func(mt *mtest.T) {
		s := newTestService(mt)
		id := primitive.NewObjectID()
		admin := profileDoc(id, "admin-uid", fixedNow)
		admin[3] = bson.E{Key: "role", Value: "admin"}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 0},
				bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: id}}}},
			),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, admin),
		)

		prof, inserted, err := s.UpsertAdmin(context.Background(), "admin-uid", "admin@camp.example.com", "Default Admin")
		require.NoError(mt, err)
		require.True(mt, inserted)
		require.Equal(mt, models.RoleAdmin, prof.Role)

		cmd := mt.GetStartedEvent().Command
		update := cmd.Lookup("updates").Array().Index(0).Value().Document()
		require.True(mt, update.Lookup("upsert").Boolean())
		set := update.Lookup("u", "$set").Document()
		require.Equal(mt, "admin", set.Lookup("role").StringValue())
		onInsert := update.Lookup("u", "$setOnInsert").Document()
		require.Equal(mt, bson.TypeNull, onInsert.Lookup("phone").Type)
		_, err = onInsert.LookupErr("createdAt")
		require.NoError(mt, err)
	})

	mt.Run("updated", func(mt *mtest.T) {
		s := newTestService(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, profileDoc(primitive.NewObjectID(), "admin-uid", fixedNow)),
		)

		_, inserted, err := s.UpsertAdmin(context.Background(), "admin-uid", "admin@camp.example.com", "Default Admin")
		require.NoError(mt, err)
		require.False(mt, inserted)
	})
}

func TestMongoProfileService_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unique index on firebaseUid", func(mt *mtest.T) {
		s := newTestService(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, s.EnsureIndexes(context.Background()))

		idx := mt.GetStartedEvent().Command.Lookup("indexes").Array().Index(0).Value().Document()
		require.Equal(mt, "firebaseUid_unique", idx.Lookup("name").StringValue())
		require.True(mt, idx.Lookup("unique").Boolean())
	})
}

func TestMongoProfileService_ConnectionFailure(t *testing.T) {
	s := NewMongoProfileService(brokenDB{err: context.DeadlineExceeded}, nil)

	_, err := s.FindByIdentity(context.Background(), "uid-1")
	require.ErrorIs(t, err, ErrDatabase)

	_, _, err = s.Create(context.Background(), models.CreateProfileInput{FirebaseUID: "uid-1"})
	require.ErrorIs(t, err, ErrDatabase)

	require.Error(t, s.EnsureIndexes(context.Background()))
}
