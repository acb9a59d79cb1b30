package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type Cursor struct {
	ID   string `json:"id,omitempty"`
	Date string `json:"date,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}

	return &cursor, nil
}

func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Page slices a list ordered by date then ID, both descending. The page token names the last
// item of the previous page, so items inserted before it do not shift later pages. When that
// item is gone the page resumes at the first item that sorts after it.
func Page[T any](items []T, req Pagination, cursorOf func(T) Cursor) ([]T, PageInfo, error) {
	start := 0
	if req.PageToken != "" {
		cursor, err := DecodeCursor(req.PageToken)
		if err != nil {
			return nil, PageInfo{}, err
		}
		if cursor.ID == "" && cursor.Date == "" {
			return nil, PageInfo{}, ErrInvalidPageToken
		}
		start = resumeAt(items, *cursor, cursorOf)
	}

	limit := req.Limit()
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	page := items[start:end]

	info := PageInfo{HasMore: end < len(items)}
	if info.HasMore && len(page) > 0 {
		token, err := EncodeCursor(cursorOf(page[len(page)-1]))
		if err != nil {
			return nil, PageInfo{}, err
		}
		info.NextPageToken = token
	}
	return page, info, nil
}

func resumeAt[T any](items []T, cursor Cursor, cursorOf func(T) Cursor) int {
	for i, item := range items {
		if cursorOf(item).ID == cursor.ID {
			return i + 1
		}
	}
	for i, item := range items {
		if sortsAfter(cursorOf(item), cursor) {
			return i
		}
	}
	return len(items)
}

func sortsAfter(c, cursor Cursor) bool {
	if c.Date != cursor.Date {
		return c.Date < cursor.Date
	}
	return c.ID < cursor.ID
}
