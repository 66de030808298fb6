package user

import "bugsentinel/internal/domain/user"

type credentialsInput struct {
	Body user.Credentials
}

type authOutput struct {
	Body user.AuthResponse
}

type meOutput struct {
	Body user.User
}
