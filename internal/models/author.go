package models

// Author is one entry of the authors data source.
type Author struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	PeopleIDs []string          `json:"people_ids,omitempty"`
	Avatar    string            `json:"avatar,omitempty"`
	Bio       string            `json:"bio,omitempty"`
	Role      string            `json:"role,omitempty"`
	Socials   map[string]string `json:"socials,omitempty"`
}

// AuthorSummary is the compact author view attached to feed responses.
type AuthorSummary struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}
