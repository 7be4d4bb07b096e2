package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"compliance-assistant-be/internal/pkg/logger"

	"github.com/tidwall/gjson"
)

const defaultTimeout = 10 * time.Second

// GoTrueClient talks to a GoTrue-compatible auth REST API.
type GoTrueClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	logger  logger.ILogger
}

func NewGoTrueClient(baseURL, apiKey string, hc *http.Client, log logger.ILogger) *GoTrueClient {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &GoTrueClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      hc,
		logger:  log,
	}
}

type goTrueUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (u goTrueUser) toUser() User {
	return User{ID: u.ID, Email: u.Email, EmailVerified: u.EmailConfirmedAt != nil, CreatedAt: u.CreatedAt}
}

type goTrueSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	User         goTrueUser `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s goTrueSession
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", credentials{Email: email, Password: password}, &s); err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		User:         s.User.toUser(),
	}, nil
}

// SignUp registers a user. The provider sends the verification mail, whose link
// lands on redirectTo.
func (c *GoTrueClient) SignUp(ctx context.Context, email, password, redirectTo string) (*User, error) {
	path := "/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, "", credentials{Email: email, Password: password}, &raw); err != nil {
		return nil, err
	}

	// autoconfirm deployments answer with a session, the others with the user
	var u goTrueUser
	if nested := gjson.GetBytes(raw, "user"); nested.IsObject() {
		if err := json.Unmarshal([]byte(nested.Raw), &u); err != nil {
			return nil, fmt.Errorf("decode signup user: %w", err)
		}
	} else if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode signup user: %w", err)
	}
	user := u.toUser()
	return &user, nil
}

func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (c *GoTrueClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u goTrueUser
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	user := u.toUser()
	return &user, nil
}

func (c *GoTrueClient) ResendVerification(ctx context.Context, email, redirectTo string) error {
	body := map[string]interface{}{"type": "signup", "email": email}
	if redirectTo != "" {
		body["options"] = map[string]string{"email_redirect_to": redirectTo}
	}
	return c.do(ctx, http.MethodPost, "/resend", "", body, nil)
}

func (c *GoTrueClient) do(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal identity request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create identity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("Identity", "Identity provider unreachable", map[string]interface{}{"path": path, "error": err.Error()})
		return &Error{Kind: KindNetwork, Raw: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Raw: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw := providerMessage(data)
		if raw == "" {
			raw = http.StatusText(resp.StatusCode)
		}
		kind := Classify(resp.StatusCode, raw)
		c.logger.Info("Identity", "Identity provider rejected request", map[string]interface{}{"path": path, "status": resp.StatusCode, "kind": kind, "raw": raw})
		return &Error{StatusCode: resp.StatusCode, Kind: kind, Raw: raw}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}

// providerMessage picks the human-readable part of a provider error body.
func providerMessage(body []byte) string {
	for _, path := range []string{"error_description", "msg", "message", "error_code", "error"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}
