package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleCamper Role = "camper"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCamper || r == RoleAdmin
}

// Profile is the application's record about a user, stored in the "users"
// collection and keyed by Firebase UID. Optional fields are stored as null.
type Profile struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FirebaseUID       string             `json:"firebaseUid" bson:"firebaseUid"`
	Email             *string            `json:"email" bson:"email"`
	Role              Role               `json:"role" bson:"role"`
	FullName          string             `json:"fullName" bson:"fullName"`
	DateOfBirth       *time.Time         `json:"dateOfBirth" bson:"dateOfBirth"`
	Phone             *string            `json:"phone" bson:"phone"`
	EmergencyContact  *string            `json:"emergencyContact" bson:"emergencyContact"`
	MedicalConditions *string            `json:"medicalConditions" bson:"medicalConditions"`
	ProfilePicture    *string            `json:"profilePicture" bson:"profilePicture"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreateProfileInput is what the store needs to create a profile.
type CreateProfileInput struct {
	FirebaseUID string
	Email       string
	Role        Role
	FullName    string
}

// SyncProfileRequest is the body of POST /users/sync.
type SyncProfileRequest struct {
	Role     Role   `json:"role" validate:"required,oneof=camper admin"`
	FullName string `json:"fullName" validate:"required,notblank"`
}
