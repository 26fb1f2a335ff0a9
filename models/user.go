package models

type User struct {
	ID       string     `bson:"_id,omitempty" json:"id" firestore:"-"`
	Name     string     `bson:"name" json:"name" firestore:"name"`
	Email    string     `bson:"email" json:"email" firestore:"email"`
	Password string     `bson:"password" json:"password,omitempty" firestore:"password"`
	Cart     []CartItem `bson:"cart" json:"cart" firestore:"cart"`
	Orders   []Order    `bson:"orders" json:"orders" firestore:"orders"`
}

// Public returns a copy without the password, safe to send to the browser.
func (u User) Public() User {
	u.Password = ""
	return u
}
