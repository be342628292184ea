package marketplace

import (
	"context"
	"strings"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/auth"
	"campusmarket/backend/internal/identity"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/storage"

	"go.uber.org/zap"
)

// Accounts signs students in through the identity provider. The local user
// row is created on first login.
type Accounts struct {
	users    storage.UserStore
	verifier identity.Verifier
	tokens   *auth.Issuer
	logger   *zap.Logger
}

func NewAccounts(users storage.UserStore, verifier identity.Verifier, tokens *auth.Issuer, logger *zap.Logger) *Accounts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accounts{users: users, verifier: verifier, tokens: tokens, logger: logger}
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (a *Accounts) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	profile, err := a.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ExternalID:  profile.Subject,
		Email:       profile.Email,
		DisplayName: displayName(profile),
		Institution: profile.Institution,
	}
	if err := a.users.UpsertUserByExternalID(ctx, user); err != nil {
		return nil, apperr.Store("failed to sign in", err)
	}

	token, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to sign in", err)
	}
	a.logger.Info("user signed in", zap.String("user_id", user.ID))
	return &LoginResult{Token: token, User: user}, nil
}

// displayName falls back to the local part of the email.
func displayName(p *identity.Profile) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return p.Email
}
