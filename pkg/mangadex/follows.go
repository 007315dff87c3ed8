package mangadex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// FollowsPage is one page of the follow list.
type FollowsPage struct {
	Manga  []Manga
	Limit  int
	Offset int
	Total  int
}

// Follows fetches one page of the user's followed manga.
func (c *Client) Follows(ctx context.Context, limit, offset int) (*FollowsPage, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var resp collection[mangaData]
	if err := c.api.Get(ctx, "/user/follows/manga", params, tok, &resp); err != nil {
		return nil, fmt.Errorf("fetch follows: %w", err)
	}

	page := &FollowsPage{
		Manga:  make([]Manga, len(resp.Data)),
		Limit:  resp.Limit,
		Offset: resp.Offset,
		Total:  resp.Total,
	}
	for i := range resp.Data {
		page.Manga[i] = resp.Data[i].ToManga()
	}
	return page, nil
}

// FollowedManga walks every page of the follow list.
func (c *Client) FollowedManga(ctx context.Context) ([]Manga, error) {
	var all []Manga
	offset := 0
	for {
		page, err := c.Follows(ctx, pageLimit, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Manga...)
		offset += len(page.Manga)
		if len(page.Manga) == 0 || offset >= page.Total {
			return all, nil
		}
	}
}

// Unfollow removes a manga from the user's follow list.
func (c *Client) Unfollow(ctx context.Context, mangaID string) error {
	if err := validateID(mangaID); err != nil {
		return err
	}
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	if err := c.api.Delete(ctx, "/manga/"+mangaID+"/follow", tok, nil); err != nil {
		return fmt.Errorf("unfollow %s: %w", mangaID, err)
	}
	return nil
}
