package banter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// registerResponse is the response from the registration endpoint.
type registerResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Register obtains fresh credentials from the service. Registration is the
// only unauthenticated call.
func Register(ctx context.Context, baseURL string) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/auth/register", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &errResp)
		return nil, &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	var reg registerResponse
	if err := json.Unmarshal(body, &reg); err != nil {
		return nil, err
	}
	if reg.Token == "" {
		return nil, fmt.Errorf("registration returned no credential")
	}
	return &Credentials{UserID: reg.UserID, Token: reg.Token}, nil
}
