// Package sheets is a minimal Google Sheets values client covering the two
// operations the storefront needs: reading a range and appending a row.
// It authenticates with a service-account JWT bearer grant; the resulting
// access token is cached until shortly before it expires.
package sheets

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
)

const (
	defaultAPIBase  = "https://sheets.googleapis.com/v4"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	scope           = "https://www.googleapis.com/auth/spreadsheets"

	tokenLifetime = time.Hour
	tokenSlack    = 60 * time.Second
)

// Client talks to one spreadsheet on behalf of one service account. It is an
// explicitly constructed, injected instance; there is no package-level state.
type Client struct {
	spreadsheetID string
	clientEmail   string
	privateKey    *rsa.PrivateKey
	httpClient    *http.Client
	apiBaseURL    string
	tokenURL      string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient parses the service-account key and returns a ready client.
func NewClient(spreadsheetID, clientEmail, privateKeyPEM string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" || strings.TrimSpace(clientEmail) == "" {
		return nil, fmt.Errorf("sheets: %w", errs.ErrNotConfigured)
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("sheets: invalid service account key: %w", err)
	}

	return &Client{
		spreadsheetID: spreadsheetID,
		clientEmail:   clientEmail,
		privateKey:    key,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		apiBaseURL:    defaultAPIBase,
		tokenURL:      defaultTokenURL,
	}, nil
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("key is not RSA")
		}
		return rsaKey, nil
	}

	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// token returns a cached access token, exchanging a fresh signed assertion
// when the cached one expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.clientEmail,
		"scope": scope,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenLifetime).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("sheets: failed to sign token assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errs.Upstream("sheets", err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int64  `json:"expires_in"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && resp.StatusCode < 400 {
		return "", errs.Upstream("sheets", fmt.Errorf("token response decode failed: %w", err))
	}

	if resp.StatusCode >= 400 {
		message := strings.TrimSpace(payload.ErrorDescription)
		if message == "" {
			message = "token request rejected"
		}
		return "", errs.UpstreamStatus("sheets", resp.StatusCode, errors.New(message))
	}
	if payload.AccessToken == "" {
		return "", errs.Upstream("sheets", errors.New("token response missing access_token"))
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = now.Add(time.Duration(payload.ExpiresIn)*time.Second - tokenSlack)
	return c.accessToken, nil
}

// Get reads a value range and returns its rows as strings.
func (c *Client) Get(ctx context.Context, readRange string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s", c.apiBaseURL, c.spreadsheetID, url.PathEscape(readRange))

	var payload struct {
		Values [][]interface{} `json:"values"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload, func() string { return payload.Error.Message }); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(payload.Values))
	for _, raw := range payload.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, cellString(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Append inserts one row at the end of the range.
func (c *Client) Append(ctx context.Context, writeRange string, row []interface{}) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		c.apiBaseURL, c.spreadsheetID, url.PathEscape(writeRange))

	body := map[string]interface{}{
		"values": [][]interface{}{row},
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	return c.do(ctx, http.MethodPost, endpoint, body, &payload, func() string { return payload.Error.Message })
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, out interface{}, errorMessage func() string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Upstream("sheets", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode < 400 {
		return errs.Upstream("sheets", fmt.Errorf("response decode failed: %w", err))
	}

	if resp.StatusCode >= 400 {
		message := strings.TrimSpace(errorMessage())
		if message == "" {
			message = "request rejected"
		}
		return errs.UpstreamStatus("sheets", resp.StatusCode, errors.New(message))
	}

	return nil
}

// cellString renders a cell value the way the spreadsheet UI would.
func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
