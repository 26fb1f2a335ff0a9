package models

import (
	"fmt"
	"time"
)

// Order is a purchased cart. ID keeps two identical purchases on the same
// day distinct inside the orders array.
type Order struct {
	ID     string     `bson:"id" json:"id" firestore:"id"`
	Date   string     `bson:"date" json:"date" firestore:"date"`
	List   []CartItem `bson:"list" json:"list" firestore:"list"`
	Amount float64    `bson:"amount" json:"amount" firestore:"amount"`
}

// OrderDate formats t as year-month-day without zero padding, e.g. 2024-3-7.
func OrderDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}
