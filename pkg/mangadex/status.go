package mangadex

import (
	"context"
	"fmt"
	"net/url"
)

// Statuses fetches the status of every manga the user has one for. A
// non-empty filter restricts the result to that status.
func (c *Client) Statuses(ctx context.Context, filter Status) (StatusMap, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var params url.Values
	if filter != "" {
		if !filter.Valid() || filter == StatusNone {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter)
		}
		params = url.Values{"status": {string(filter)}}
	}

	var resp statusesResponse
	if err := c.api.Get(ctx, "/manga/status", params, tok, &resp); err != nil {
		return nil, fmt.Errorf("fetch statuses: %w", err)
	}
	if resp.Statuses == nil {
		return StatusMap{}, nil
	}
	return resp.Statuses, nil
}

// MangaStatus fetches the status of a single manga. StatusNone means unset.
func (c *Client) MangaStatus(ctx context.Context, mangaID string) (Status, error) {
	if err := validateID(mangaID); err != nil {
		return "", err
	}
	tok, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	var resp mangaStatusResponse
	if err := c.api.Get(ctx, "/manga/"+mangaID+"/status", nil, tok, &resp); err != nil {
		return "", fmt.Errorf("fetch status of %s: %w", mangaID, err)
	}
	if resp.Status == nil {
		return StatusNone, nil
	}
	return Status(*resp.Status), nil
}

// SetStatus sets the user's status for a manga. Setting the status it
// already has is harmless.
func (c *Client) SetStatus(ctx context.Context, mangaID string, status Status) error {
	if err := validateID(mangaID); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	if err := c.api.Post(ctx, "/manga/"+mangaID+"/status", statusBody{Status: status}, tok, nil); err != nil {
		return fmt.Errorf("set status of %s to %s: %w", mangaID, status, err)
	}
	return nil
}
