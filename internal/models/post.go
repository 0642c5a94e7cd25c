package models

// Status is the visibility state of a post or page.
type Status string

const (
	StatusPublic         Status = "Public"
	StatusPublicOnDetail Status = "PublicOnDetail"
	StatusDraft          Status = "Draft"
	StatusPrivate        Status = "Private"
)

// ValidStatus reports whether s is one of the closed status values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPublic, StatusPublicOnDetail, StatusDraft, StatusPrivate:
		return true
	}
	return false
}

// PostType distinguishes blog posts from standalone pages.
type PostType string

const (
	TypePost PostType = "Post"
	TypePage PostType = "Page"
)

// ValidPostType reports whether t is one of the closed type values.
func ValidPostType(t PostType) bool {
	return t == TypePost || t == TypePage
}

// Post is the normalized snapshot of one document record. Instances are
// immutable per fetch cycle and replaced wholesale on refresh.
type Post struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Slug           string   `json:"slug"`
	Status         Status   `json:"status"`
	Type           PostType `json:"type"`
	Date           string   `json:"date"`
	LastEditedTime string   `json:"last_edited_time"`
	Tags           []string `json:"tags"`
	Category       string   `json:"category,omitempty"`
	Series         string   `json:"series,omitempty"`
	Author         string   `json:"author"`
	AuthorIDs      []string `json:"author_ids,omitempty"`
	Summary        string   `json:"summary"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
	BlurDataURL    string   `json:"blur_data_url,omitempty"`
	Pinned         bool     `json:"pinned"`
}

// VisibleOnDetail reports whether the post may be served on its own
// detail page. PublicOnDetail posts are detail-visible but excluded
// from feeds and listings.
func (p Post) VisibleOnDetail() bool {
	return p.Status == StatusPublic || p.Status == StatusPublicOnDetail
}
