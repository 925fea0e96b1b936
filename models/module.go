package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LearningModule is one educational module of the learn section
type LearningModule struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Difficulty  string             `bson:"difficulty" json:"difficulty"`
	Duration    int                `bson:"duration,omitempty" json:"duration,omitempty"`
	Sections    []ModuleSection    `bson:"sections" json:"sections"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Published   bool               `bson:"published" json:"published"`
	Views       int                `bson:"views" json:"views"`
	CreatedBy   string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ModuleSection is one content block of a learning module
type ModuleSection struct {
	Heading string `bson:"heading" json:"heading"`
	Body    string `bson:"body" json:"body"`
}
