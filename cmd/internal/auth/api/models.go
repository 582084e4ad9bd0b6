package authapi

import (
	"time"

	"locallibrary/cmd/identity"
	"locallibrary/cmd/internal/auth/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	FullName    string    `json:"full_name"`
	Active      bool      `json:"active"`
	Groups      []string  `json:"groups"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url"`
}

type sessionResponse struct {
	SessionID        string    `json:"session_id"`
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

type loginResponse struct {
	User    userResponse    `json:"user"`
	Session sessionResponse `json:"session"`
	Next    string          `json:"next,omitempty"`
}

type userMessageResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type verifyResponse struct {
	Message string `json:"message"`
	Next    string `json:"next"`
}

func profileURL(id string) string { return "/accounts/profile/" + id }

func toUserResponse(u identity.User) userResponse {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		Active:      u.Active,
		Groups:      groups,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
		URL:         profileURL(u.ID),
	}
}

func toSessionResponse(issued session.Issued) sessionResponse {
	return sessionResponse{
		SessionID:        issued.SessionID,
		AccessToken:      issued.AccessToken,
		AccessExpiresAt:  issued.AccessExp,
		SessionExpiresAt: issued.SessionExp,
	}
}
