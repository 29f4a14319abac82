package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/mailboard/internal/model"
)

// ListEvents fetches events falling within the next daysAhead days. Events
// without a parseable date are kept; the merger drops them.
func (c *Client) ListEvents(ctx context.Context, daysAhead int) ([]model.CalendarEvent, error) {
	if daysAhead <= 0 {
		daysAhead = DefaultDaysAhead
	}
	query := url.Values{}
	query.Set("days_ahead", strconv.Itoa(daysAhead))

	var resp eventList
	if err := c.get(ctx, "/events", query, &resp); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return resp, nil
}
