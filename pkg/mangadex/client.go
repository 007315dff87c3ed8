package mangadex

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kerbaras/mdhold/pkg/utils"
)

// BaseURL is the public MangaDex API.
const BaseURL = "https://api.mangadex.org"

// pageLimit is the largest page size the follow and list endpoints accept.
const pageLimit = 100

var (
	ErrInvalidID     = errors.New("invalid manga id")
	ErrInvalidStatus = errors.New("invalid status")
	ErrNoToken       = errors.New("no session token source configured")
)

// TokenSource hands out a valid session token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client wraps the MangaDex endpoints this tool needs. Rate limiting and
// retries live in the underlying utils.API.
type Client struct {
	api    *utils.API
	tokens TokenSource
}

func NewClient(api *utils.API) *Client {
	return &Client{api: api}
}

// WithTokenSource returns a copy of c that authenticates with ts.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", ErrNoToken
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return tok, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
