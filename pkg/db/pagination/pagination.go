// Package pagination implements cursor paging for list endpoints. Tokens
// encode the last served row, so pages stay stable while the workers keep
// inserting ahead of the reader.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Pagination is the query-string shape shared by cursor-paged endpoints.
// Handlers apply their own default and ceiling to PageSize.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Cursor marks the last row of a served page. Snowflake IDs are
// time-ordered, so the ID alone is a stable sort key.
type Cursor struct {
	ID int64 `json:"id"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

// EncodeCursor renders an opaque token that is safe to embed in a query
// string without escaping.
func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode page token: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, fmt.Errorf("decode page token: %w", err)
	}
	if c.ID == 0 {
		return Cursor{}, fmt.Errorf("decode page token: empty cursor")
	}
	return c, nil
}
