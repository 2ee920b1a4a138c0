package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

type Message struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds"`
}

type Embed struct {
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Author      *Author      `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type Author struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	IconURL string `json:"icon_url"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type OAuthToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

type Member struct {
	User  User     `json:"user"`
	Roles []string `json:"roles"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

const DefaultBaseURL = "https://discord.com/api/v10"

type Client struct {
	baseURL      string
	token        string
	clientID     string
	clientSecret string
	redirectURI  string
	serverID     string
	client       *http.Client
	cache        *cache.Cache
}

type DiscordClient interface {
	SendMessage(ctx context.Context, channelID string, message Message) error
	GetOAuth2Token(ctx context.Context, code string) (*OAuthToken, error)
	GetGuildMember(ctx context.Context, accessToken string) (*Member, error)
}

type Config struct {
	BaseURL      string
	BotToken     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	ServerID     string
	MemberTTL    time.Duration
}

func NewClient(cfg Config) *Client {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.MemberTTL <= 0 {
		cfg.MemberTTL = time.Minute
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		token:        cfg.BotToken,
		client:       client,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		serverID:     cfg.ServerID,
		cache:        cache.New(cfg.MemberTTL, 5*cfg.MemberTTL),
	}
}

// StatusError is a non 2xx answer from the discord API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status '%v' and body:\n%v", e.StatusCode, e.Body)
}

func (m *Member) HasRole(roleID string) bool {
	return roleID != "" && slices.Contains(m.Roles, roleID)
}

func (c *Client) SendMessage(ctx context.Context, channelID string, message Message) error {
	if len(strings.TrimSpace(channelID)) == 0 {
		return errors.New("channelID cannot be empty")
	}

	msgURL, err := c.getURL("channels", channelID, "messages")

	if err != nil {
		return err
	}

	body, err := json.Marshal(message)

	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msgURL, bytes.NewReader(body))

	if err != nil {
		return fmt.Errorf("failed create new request: %w", err)
	}

	c.setHeaders(req)

	return c.do(req, nil)
}

func (c *Client) GetOAuth2Token(ctx context.Context, code string) (*OAuthToken, error) {
	tokenURL, err := c.getURL("oauth2", "token")

	if err != nil {
		return nil, err
	}

	formValues := url.Values{
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURI},
		"grant_type":    {"authorization_code"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(formValues.Encode()))

	if err != nil {
		return nil, fmt.Errorf("failed create new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var token OAuthToken

	if err := c.do(req, &token); err != nil {
		return nil, err
	}

	return &token, nil
}

// GetGuildMember resolves an access token to the member of the configured
// guild. Members are cached per token.
func (c *Client) GetGuildMember(ctx context.Context, accessToken string) (*Member, error) {
	if cached, found := c.cache.Get(accessToken); found {
		return cached.(*Member), nil
	}

	memberURL, err := c.getURL("users", "@me", "guilds", c.serverID, "member")

	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, memberURL, http.NoBody)

	if err != nil {
		return nil, fmt.Errorf("failed create new request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var member Member

	if err := c.do(req, &member); err != nil {
		return nil, err
	}

	c.cache.Set(accessToken, &member, cache.DefaultExpiration)

	return &member, nil
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.client.Do(req)

	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	defer res.Body.Close()

	bodyBytes, readErr := io.ReadAll(res.Body)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		if readErr != nil {
			return fmt.Errorf("request failed with status %d; also failed reading body: %w", res.StatusCode, readErr)
		}
		return &StatusError{StatusCode: res.StatusCode, Body: string(bodyBytes)}
	}

	if readErr != nil {
		return fmt.Errorf("failed to read body: %w", readErr)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed reading body: %w", err)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)
}

func (c *Client) getURL(elem ...string) (string, error) {
	clientURL, err := url.JoinPath(c.baseURL, elem...)
	if err != nil {
		return "", fmt.Errorf("failed to create URL: %w", err)
	}

	return clientURL, nil
}
