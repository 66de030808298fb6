package user

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Credentials struct {
	Email    string `json:"email" doc:"Account email" example:"dev@example.com" minLength:"3" maxLength:"254"`
	Password string `json:"password" doc:"Account password" minLength:"1" maxLength:"72"`
}
