package author

import (
	"github.com/notionpress/core/internal/models"
	"github.com/notionpress/core/internal/notion"
)

// social property names probed on each author record.
var socialProps = []string{"twitter", "github", "website", "mastodon", "linkedin"}

// Normalize maps one raw author record into an Author. Missing
// properties degrade to zero values.
func Normalize(rec notion.Record) models.Author {
	props := rec.Properties

	a := models.Author{
		ID:        rec.ID,
		Name:      nameOf(props),
		PeopleIDs: props.PeopleIDs("people"),
		Avatar:    props.FileURL("avatar"),
		Bio:       props.RichTextPlain("bio"),
		Role:      props.RichTextPlain("role"),
	}
	if a.Role == "" {
		a.Role = props.Select("role")
	}
	for _, key := range socialProps {
		if url := props.URL(key); url != "" {
			if a.Socials == nil {
				a.Socials = map[string]string{}
			}
			a.Socials[key] = url
		}
	}
	return a
}

func nameOf(props notion.Properties) string {
	if props.Get("name") != nil {
		return props.RichTextPlain("name")
	}
	return props.RichTextPlain("title")
}
