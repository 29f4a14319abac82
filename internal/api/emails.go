package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/mailboard/internal/model"
)

// ListEmails fetches up to max recent email summaries.
func (c *Client) ListEmails(ctx context.Context, max int) ([]model.EmailSummary, error) {
	if max <= 0 {
		max = DefaultEmailLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(max))

	var resp emailList
	if err := c.get(ctx, "/emails", query, &resp); err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	return resp, nil
}

// GetEmail fetches one email with its full body. The result is marked full
// when the backend returned a body, even if it omitted is_full.
func (c *Client) GetEmail(ctx context.Context, id string) (model.EmailSummary, error) {
	if id == "" {
		return model.EmailSummary{}, fmt.Errorf("get email: empty id")
	}

	var email model.EmailSummary
	if err := c.get(ctx, "/emails/"+url.PathEscape(id), nil, &email); err != nil {
		return model.EmailSummary{}, fmt.Errorf("get email %s: %w", id, err)
	}
	if email.ID == "" {
		email.ID = id
	}
	if email.Body != "" {
		email.IsFull = true
	}
	return email, nil
}
