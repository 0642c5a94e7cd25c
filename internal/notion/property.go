package notion

import (
	"encoding/json"
	"strings"
)

// Record is one page-level entity returned from a data source query,
// before normalization into a Post or Author.
type Record struct {
	ID             string       `json:"id"`
	LastEditedTime string       `json:"last_edited_time"`
	Cover          *FilePayload `json:"cover"`
	Properties     Properties   `json:"properties"`
}

// Properties is the property bag of a record. Values stay raw until a
// typed accessor decodes them.
type Properties map[string]json.RawMessage

// Get resolves a property by logical name, case-insensitively. An exact
// match wins over a case-folded one.
func (p Properties) Get(name string) json.RawMessage {
	if v, ok := p[name]; ok {
		return v
	}
	lower := strings.ToLower(name)
	for k, v := range p {
		if strings.ToLower(k) == lower {
			return v
		}
	}
	return nil
}

type propertyHead struct {
	Type string `json:"type"`
}

func propertyType(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var head propertyHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return head.Type
}

// RichTextPlain flattens a title or rich_text property into one plain
// string, discarding formatting.
func (p Properties) RichTextPlain(name string) string {
	raw := p.Get(name)
	switch propertyType(raw) {
	case "rich_text":
		var v struct {
			RichText []RichText `json:"rich_text"`
		}
		if json.Unmarshal(raw, &v) != nil {
			return ""
		}
		return PlainText(v.RichText)
	case "title":
		var v struct {
			Title []RichText `json:"title"`
		}
		if json.Unmarshal(raw, &v) != nil {
			return ""
		}
		return PlainText(v.Title)
	}
	return ""
}

// Select returns the selected option's label, or "".
func (p Properties) Select(name string) string {
	raw := p.Get(name)
	if propertyType(raw) != "select" {
		return ""
	}
	var v struct {
		Select *struct {
			Name string `json:"name"`
		} `json:"select"`
	}
	if json.Unmarshal(raw, &v) != nil || v.Select == nil {
		return ""
	}
	return v.Select.Name
}

// MultiSelect returns the selected option labels in source order.
func (p Properties) MultiSelect(name string) []string {
	raw := p.Get(name)
	if propertyType(raw) != "multi_select" {
		return nil
	}
	var v struct {
		MultiSelect []struct {
			Name string `json:"name"`
		} `json:"multi_select"`
	}
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	names := make([]string, 0, len(v.MultiSelect))
	for _, s := range v.MultiSelect {
		names = append(names, s.Name)
	}
	return names
}

// Date returns the start date ISO string, or "".
func (p Properties) Date(name string) string {
	raw := p.Get(name)
	if propertyType(raw) != "date" {
		return ""
	}
	var v struct {
		Date *struct {
			Start string `json:"start"`
		} `json:"date"`
	}
	if json.Unmarshal(raw, &v) != nil || v.Date == nil {
		return ""
	}
	return v.Date.Start
}

type person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p Properties) people(name string) []person {
	raw := p.Get(name)
	if propertyType(raw) != "people" {
		return nil
	}
	var v struct {
		People []person `json:"people"`
	}
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v.People
}

// PeopleNames joins the display names of a people property with ", ".
func (p Properties) PeopleNames(name string) string {
	var names []string
	for _, person := range p.people(name) {
		if person.Name != "" {
			names = append(names, person.Name)
		}
	}
	return strings.Join(names, ", ")
}

// PeopleIDs returns the person identifiers of a people property in
// source order, primary first.
func (p Properties) PeopleIDs(name string) []string {
	var ids []string
	for _, person := range p.people(name) {
		if person.ID != "" {
			ids = append(ids, person.ID)
		}
	}
	return ids
}

// FileURL returns the first file's resolved URL (internal or external
// variant), or "".
func (p Properties) FileURL(name string) string {
	raw := p.Get(name)
	if propertyType(raw) != "files" {
		return ""
	}
	var v struct {
		Files []FilePayload `json:"files"`
	}
	if json.Unmarshal(raw, &v) != nil || len(v.Files) == 0 {
		return ""
	}
	return v.Files[0].URL
}

// Checkbox returns the checkbox state, defaulting to false.
func (p Properties) Checkbox(name string) bool {
	raw := p.Get(name)
	if propertyType(raw) != "checkbox" {
		return false
	}
	var v struct {
		Checkbox bool `json:"checkbox"`
	}
	if json.Unmarshal(raw, &v) != nil {
		return false
	}
	return v.Checkbox
}

// URL returns a url property, falling back to rich text content for
// sources that store links as plain text.
func (p Properties) URL(name string) string {
	raw := p.Get(name)
	switch propertyType(raw) {
	case "url":
		var v struct {
			URL *string `json:"url"`
		}
		if json.Unmarshal(raw, &v) != nil || v.URL == nil {
			return ""
		}
		return *v.URL
	case "rich_text":
		return p.RichTextPlain(name)
	}
	return ""
}
