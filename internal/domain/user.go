package domain

type User struct {
	ID       string `json:"id" firestore:"-"`
	Name     string `json:"name" firestore:"name"`
	Email    string `json:"email" firestore:"email"`
	FCMToken string `json:"fcmToken,omitempty" firestore:"fcmToken"`
	Rating
}
