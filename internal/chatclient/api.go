package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/httpclient"
	"campusmarket/backend/internal/models"
)

// HTTPClient implements MessageAPI against the REST API with a bearer token.
// Fetches are retried; sends are not, since a retried send could store the
// message twice.
type HTTPClient struct {
	baseURL string
	token   string
	http    *httpclient.Client
}

func NewHTTPClient(baseURL, token string, hc *httpclient.Client) *HTTPClient {
	if hc == nil {
		hc = httpclient.NewClient(httpclient.DefaultConfig())
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

type errorBody struct {
	Error struct {
		Code    apperr.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) FetchConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	q := url.Values{"user1": {userA}, "user2": {userB}}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/messages?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.DoWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var msgs []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return msgs, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, receiverID, content string) (*models.Message, error) {
	body, err := json.Marshal(map[string]string{"receiver_id": receiverID, "content": content})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var msg models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// decodeError turns an API error body back into an *apperr.AppError.
func decodeError(resp *http.Response) error {
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error.Code == "" {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return apperr.New(body.Error.Code, body.Error.Message)
}
