package catalog

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a raw catalog product as stored in the products collection.
// Optional fields (tags, rating, reviews) may be absent in stored documents;
// readers must not assume they are populated.
type Product struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Image       string             `bson:"image,omitempty"`
	Rating      float64            `bson:"rating,omitempty"`
	Tags        []string           `bson:"tags,omitempty"`
	Reviews     []string           `bson:"reviews,omitempty"`
	ShopID      primitive.ObjectID `bson:"shopId"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt   time.Time          `bson:"updatedAt,omitempty"`

	// Shop is the owning shop, populated by Store implementations when the
	// shop document exists. Nil when the reference is dangling.
	Shop *Shop `bson:"-"`
}

// Shop is a raw catalog shop as stored in the shops collection.
type Shop struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	OwnerName   string             `bson:"ownerName"`
	Email       string             `bson:"email,omitempty"`
	Phone       string             `bson:"phone,omitempty"`
	Address     string             `bson:"address"`
	Description string             `bson:"description,omitempty"`
	Status      string             `bson:"status,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty"`
}
