package models

import "time"

// User is the profile document stored in the `users` collection. The document
// id is the Firebase Auth UID, so auth identity and profile identity never
// diverge. Username is claimed once at signup and is immutable afterwards.
type User struct {
	UID         string    `json:"uid" bson:"_id"`
	Username    string    `json:"username" bson:"username"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	AvatarRef   string    `json:"avatar_ref,omitempty" bson:"avatar_ref,omitempty"`
	DeviceToken string    `json:"-" bson:"device_token,omitempty"` // FCM delivery address
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// UsernameReservation is one document in the `usernames` collection, keyed by
// the lowercased username. Inserting it in the same transaction as the profile
// is what makes the claim atomic: both documents land or neither does.
type UsernameReservation struct {
	Username  string    `json:"username" bson:"_id"` // lowercase form
	UID       string    `json:"uid" bson:"uid"`
	ClaimedAt time.Time `json:"claimed_at" bson:"claimed_at"`
}

// SignupRequest is the body of POST /auth/signup. The Firebase UID comes from
// the verified ID token, never from the payload.
type SignupRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=24"`
	DisplayName string `json:"display_name" validate:"required,max=24"`
	DeviceToken string `json:"device_token,omitempty"`
}

// UpdateUserRequest is the body of PUT /users/me. Username is bound only so
// the handler can refuse attempts to change it: it is immutable once claimed.
type UpdateUserRequest struct {
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,max=24"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	DeviceToken string `json:"device_token,omitempty"`
}

// UserCompact is the trimmed view returned inside friend lists and search
// results.
type UserCompact struct {
	UID         string `json:"uid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// ToCompact strips the profile down to what other users may see.
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		UID:         u.UID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarRef:   u.AvatarRef,
	}
}
