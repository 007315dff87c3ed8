package mangadex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Status is a user's reading status for one manga.
type Status string

const (
	StatusReading    Status = "reading"
	StatusOnHold     Status = "on_hold"
	StatusPlanToRead Status = "plan_to_read"
	StatusDropped    Status = "dropped"
	StatusReReading  Status = "re_reading"
	StatusCompleted  Status = "completed"
	// StatusNone clears the status; it travels as JSON null.
	StatusNone Status = "none"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusReading,
	StatusOnHold,
	StatusPlanToRead,
	StatusDropped,
	StatusReReading,
	StatusCompleted,
	StatusNone,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus validates a user supplied status name.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	return s, nil
}

// StatusMap maps manga IDs to the user's status.
type StatusMap map[string]Status

// UnmarshalJSON accepts an object, or the empty array the API sends when the
// user has no statuses.
func (m *StatusMap) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("[]")) || bytes.Equal(trimmed, []byte("null")) {
		*m = StatusMap{}
		return nil
	}
	var raw map[string]*string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	out := make(StatusMap, len(raw))
	for id, s := range raw {
		if s == nil {
			out[id] = StatusNone
			continue
		}
		out[id] = Status(*s)
	}
	*m = out
	return nil
}

// IDs returns the manga IDs in sorted order.
func (m StatusMap) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns how many entries have status s.
func (m StatusMap) Count(s Status) int {
	n := 0
	for _, v := range m {
		if v == s {
			n++
		}
	}
	return n
}

type statusBody struct {
	Status Status
}

func (b statusBody) MarshalJSON() ([]byte, error) {
	if b.Status == StatusNone {
		return []byte(`{"status":null}`), nil
	}
	return json.Marshal(map[string]string{"status": string(b.Status)})
}

// ============================================
// API RESPONSE STRUCTURES
// ============================================

type tokenResponse struct {
	Result string `json:"result"`
	Token  struct {
		Session string `json:"session"`
		Refresh string `json:"refresh"`
	} `json:"token"`
}

type statusesResponse struct {
	Result   string    `json:"result"`
	Statuses StatusMap `json:"statuses"`
}

type mangaStatusResponse struct {
	Result string  `json:"result"`
	Status *string `json:"status"`
}

type collection[T any] struct {
	Result string `json:"result"`
	Data   []T    `json:"data"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Total  int    `json:"total"`
}

type mangaData struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Title     map[string]string   `json:"title"`
		AltTitles []map[string]string `json:"altTitles"`
		Status    string              `json:"status"`
		Year      int                 `json:"year"`
	} `json:"attributes"`
}

func (m *mangaData) ToManga() Manga {
	return Manga{
		ID:               m.ID,
		Title:            preferredTitle(m.Attributes.Title, m.Attributes.AltTitles),
		PublicationState: m.Attributes.Status,
		Year:             m.Attributes.Year,
	}
}

type relationship struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type customListData struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name       string `json:"name"`
		Visibility string `json:"visibility"`
		Version    int    `json:"version"`
	} `json:"attributes"`
	Relationships []relationship `json:"relationships"`
}

func (c *customListData) ToCustomList() CustomList {
	list := CustomList{
		ID:         c.ID,
		Name:       c.Attributes.Name,
		Visibility: c.Attributes.Visibility,
		Version:    c.Attributes.Version,
	}
	for _, rel := range c.Relationships {
		if rel.Type == "manga" {
			list.MangaIDs = append(list.MangaIDs, rel.ID)
		}
	}
	return list
}

// ============================================
// DOMAIN TYPES
// ============================================

// Manga is a followed title.
type Manga struct {
	ID               string
	Title            string
	PublicationState string // "ongoing", "completed", "hiatus", "cancelled"
	Year             int
}

// CustomList is one of the user's MangaDex lists.
type CustomList struct {
	ID         string
	Name       string
	Visibility string
	Version    int
	MangaIDs   []string
}

// preferredTitle picks English, then any alt title in English, then the
// first title by language code.
func preferredTitle(titles map[string]string, alts []map[string]string) string {
	if t, ok := titles["en"]; ok && t != "" {
		return t
	}
	for _, alt := range alts {
		if t, ok := alt["en"]; ok && t != "" {
			return t
		}
	}
	langs := make([]string, 0, len(titles))
	for lang := range titles {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if titles[lang] != "" {
			return titles[lang]
		}
	}
	return ""
}
