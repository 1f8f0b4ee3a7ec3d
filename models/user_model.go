package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an administrator allowed to use the write API.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Username  string             `bson:"username" json:"username"`
	Theme     string             `bson:"theme,omitempty" json:"theme,omitempty"`
	Language  string             `bson:"language,omitempty" json:"language,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
