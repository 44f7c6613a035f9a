package user

// Profile is a player in the prediction league.
type Profile struct {
	ID          string `json:"id" bson:"_id"`
	DisplayName string `json:"displayName" bson:"display_name"`
	HasPaid     bool   `json:"hasPaid" bson:"has_paid"`
	IsAdmin     bool   `json:"isAdmin" bson:"is_admin"`
}
