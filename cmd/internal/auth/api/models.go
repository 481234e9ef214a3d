package authapi

import "time"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

type loginResponse struct {
	User userResponse `json:"user"`
}

type registerResponse struct {
	User userResponse `json:"user"`
}

type refreshResponse struct {
	User userResponse `json:"user"`
}

type meResponse struct {
	User userResponse `json:"user"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
