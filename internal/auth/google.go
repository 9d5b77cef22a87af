package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the verified subset of a Google ID token payload.
type GoogleIdentity struct {
	GoogleID string
	Email    string
	Name     string
}

// GoogleVerifier validates Google sign-in credentials.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (*GoogleIdentity, error)
}

type googleVerifier struct {
	clientID string
}

// NewGoogleVerifier returns a verifier bound to the configured OAuth client.
func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &googleVerifier{clientID: clientID}
}

func (v *googleVerifier) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, errors.New("google client id not configured")
	}
	payload, err := idtoken.Validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, err
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return nil, errors.New("google token missing email claim")
	}
	return &GoogleIdentity{
		GoogleID: payload.Subject,
		Email:    email,
		Name:     name,
	}, nil
}
