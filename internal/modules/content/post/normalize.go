package post

import (
	"strings"

	"github.com/notionpress/core/internal/models"
	"github.com/notionpress/core/internal/notion"
)

// Normalize maps one raw record into a Post. Missing or malformed
// properties degrade to zero values, never to an error; invalid enum
// values coerce to the safest member so a mistyped status can only hide
// a post, not leak a draft.
func Normalize(rec notion.Record) models.Post {
	props := rec.Properties

	p := models.Post{
		ID:             rec.ID,
		Title:          titleOf(props),
		Slug:           props.RichTextPlain("slug"),
		Status:         models.Status(props.Select("status")),
		Type:           models.PostType(props.Select("type")),
		Date:           props.Date("date"),
		LastEditedTime: rec.LastEditedTime,
		Tags:           props.MultiSelect("tags"),
		Category:       props.Select("category"),
		Series:         props.Select("series"),
		Author:         authorOf(props),
		AuthorIDs:      props.PeopleIDs("author"),
		Summary:        props.RichTextPlain("summary"),
		Pinned:         props.Checkbox("pinned"),
	}

	if !models.ValidStatus(p.Status) {
		p.Status = models.StatusDraft
	}
	if !models.ValidPostType(p.Type) {
		p.Type = models.TypePost
	}
	if p.Slug == "" {
		p.Slug = strings.ReplaceAll(rec.ID, "-", "")
	}
	if rec.Cover != nil {
		p.Thumbnail = rec.Cover.URL
	}
	return p
}

// titleOf prefers a property named title and falls back to Name, which
// older source databases use for the title column.
func titleOf(props notion.Properties) string {
	if props.Get("title") != nil {
		return props.RichTextPlain("title")
	}
	return props.RichTextPlain("Name")
}

// authorOf prefers the people property's display names and falls back
// to a plain text author column.
func authorOf(props notion.Properties) string {
	if names := props.PeopleNames("author"); names != "" {
		return names
	}
	return props.RichTextPlain("author")
}
