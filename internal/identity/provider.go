// Package identity wraps the external auth provider that owns driver and
// passenger login accounts. The backend only creates and deletes accounts;
// sign-in happens directly between the mobile apps and the provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"toda-backend/internal/config"
)

var (
	ErrEmailExists  = errors.New("identity: email already registered")
	ErrInvalidEmail = errors.New("identity: invalid email address")
	ErrWeakPassword = errors.New("identity: password too weak")
)

// Provider creates and deletes login accounts. CreateAccount returns the
// provider-assigned account ID, which becomes the driver/passenger ID.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

// RESTProvider talks to the auth provider's admin API over HTTPS.
type RESTProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTProvider(cfg *config.Config) *RESTProvider {
	return &RESTProvider{
		baseURL: strings.TrimRight(cfg.Identity.BaseURL, "/"),
		apiKey:  cfg.Identity.APIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type createAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createAccountResponse struct {
	LocalID string `json:"localId"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *RESTProvider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(createAccountRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	url := p.baseURL + "/v1/accounts:signUp?key=" + p.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	var out createAccountResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("identity response decode: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch {
		case strings.Contains(out.Error.Message, "EMAIL_EXISTS"):
			return "", ErrEmailExists
		case strings.Contains(out.Error.Message, "INVALID_EMAIL"):
			return "", ErrInvalidEmail
		case strings.Contains(out.Error.Message, "WEAK_PASSWORD"):
			return "", ErrWeakPassword
		default:
			return "", fmt.Errorf("identity error: %s", out.Error.Message)
		}
	}
	if out.LocalID == "" {
		return "", errors.New("identity: empty account id in response")
	}
	return out.LocalID, nil
}

func (p *RESTProvider) DeleteAccount(ctx context.Context, accountID string) error {
	body, err := json.Marshal(map[string]string{"localId": accountID})
	if err != nil {
		return err
	}

	url := p.baseURL + "/v1/accounts:delete?key=" + p.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity delete failed with status %d", resp.StatusCode)
	}
	return nil
}
