package mangadex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// UserLists fetches all of the logged-in user's custom lists.
func (c *Client) UserLists(ctx context.Context) ([]CustomList, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var lists []CustomList
	offset := 0
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(pageLimit))
		params.Set("offset", strconv.Itoa(offset))

		var resp collection[customListData]
		if err := c.api.Get(ctx, "/user/list", params, tok, &resp); err != nil {
			return nil, fmt.Errorf("fetch user lists: %w", err)
		}
		for i := range resp.Data {
			lists = append(lists, resp.Data[i].ToCustomList())
		}

		offset += len(resp.Data)
		if len(resp.Data) == 0 || offset >= resp.Total {
			return lists, nil
		}
	}
}
