package models

// User is an Airtable account that signed in through OAuth. AccessToken and
// RefreshToken hold sealed ciphertext, never the raw tokens.
type User struct {
	ID             string `json:"_id,omitempty" bson:"_id,omitempty"`
	AirtableUserID string `json:"airtableUserId" bson:"airtableUserId"`
	Email          string `json:"email" bson:"email"`
	Name           string `json:"name" bson:"name"`
	AccessToken    string `json:"accessToken,omitempty" bson:"accessToken"`
	RefreshToken   string `json:"refreshToken,omitempty" bson:"refreshToken"`
	TokenExpiresAt string `json:"tokenExpiresAt,omitempty" bson:"tokenExpiresAt"`
	LoginAt        string `json:"loginTimestamp" bson:"loginTimestamp"`
	CreatedAt      string `json:"createdAt" bson:"createdAt"`
}

type UserResponse struct {
	ID             string `json:"id"`
	AirtableUserID string `json:"airtableUserId"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	LoginAt        string `json:"loginTimestamp"`
	CreatedAt      string `json:"createdAt"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:             u.ID,
		AirtableUserID: u.AirtableUserID,
		Email:          u.Email,
		Name:           u.Name,
		LoginAt:        u.LoginAt,
		CreatedAt:      u.CreatedAt,
	}
}
