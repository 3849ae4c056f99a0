package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to the Twilio Messages API over plain HTTP form posts.
type Client struct {
	AccountSID string
	AuthToken  string
	HTTP       *http.Client
	BaseURL    string
}

type sendParams struct {
	From             string
	To               string
	Body             string
	ContentSID       string
	ContentVariables string
	StatusCallback   string
}

// apiResponse covers both the created-message shape and the error shape
// ({"code": 63001, "message": ..., "status": 400}) of the Messages API.
type apiResponse struct {
	Sid     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// createMessage posts to /Messages.json. The returned error covers transport
// problems only; carrier-level rejections come back in the response with a
// non-2xx httpStatus.
func (c *Client) createMessage(ctx context.Context, p sendParams) (apiResponse, int, error) {
	form := url.Values{}
	form.Set("From", p.From)
	form.Set("To", p.To)
	if p.ContentSID != "" {
		form.Set("ContentSid", p.ContentSID)
		form.Set("ContentVariables", p.ContentVariables)
	} else {
		form.Set("Body", p.Body)
	}
	if p.StatusCallback != "" {
		form.Set("StatusCallback", p.StatusCallback)
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	endpoint := baseURL + "/2010-04-01/Accounts/" + c.AccountSID + "/Messages.json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return apiResponse{}, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.AccountSID, c.AuthToken)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return apiResponse{}, 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	var out apiResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return apiResponse{}, resp.StatusCode, errors.New("twilio: unparseable response: " + string(b))
	}
	return out, resp.StatusCode, nil
}
