package models

type Product struct {
	ID          string  `bson:"id" json:"id" firestore:"id"`
	Name        string  `bson:"name" json:"name" firestore:"name" binding:"required"`
	Description string  `bson:"description" json:"description" firestore:"description"`
	Price       float64 `bson:"price" json:"price" firestore:"price"`
	Category    string  `bson:"category" json:"category" firestore:"category"`
	Image       string  `bson:"image" json:"image" firestore:"image"`
}
