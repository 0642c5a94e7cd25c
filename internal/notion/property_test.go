package notion

import (
	"encoding/json"
	"reflect"
	"testing"
)

func props(pairs map[string]string) Properties {
	p := make(Properties, len(pairs))
	for k, v := range pairs {
		p[k] = json.RawMessage(v)
	}
	return p
}

func TestGetCaseInsensitive(t *testing.T) {
	p := props(map[string]string{
		"Status": `{"type":"select","select":{"name":"Public"}}`,
		"status": `{"type":"select","select":{"name":"Draft"}}`,
	})
	if got := p.Select("Status"); got != "Public" {
		t.Errorf("exact match should win, got %q", got)
	}
	if got := p.Select("STATUS"); got == "" {
		t.Error("case-folded lookup should find a value")
	}
	if got := p.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %s, want nil", got)
	}
}

func TestRichTextPlain(t *testing.T) {
	p := props(map[string]string{
		"summary": `{"type":"rich_text","rich_text":[{"type":"text","plain_text":"Hello ","annotations":{}},{"type":"text","plain_text":"world","annotations":{}}]}`,
		"name":    `{"type":"title","title":[{"type":"text","plain_text":"A Title","annotations":{}}]}`,
		"count":   `{"type":"number","number":3}`,
	})
	if got := p.RichTextPlain("summary"); got != "Hello world" {
		t.Errorf("rich_text = %q", got)
	}
	if got := p.RichTextPlain("name"); got != "A Title" {
		t.Errorf("title = %q", got)
	}
	if got := p.RichTextPlain("count"); got != "" {
		t.Errorf("wrong type should yield empty, got %q", got)
	}
}

func TestMultiSelectOrder(t *testing.T) {
	p := props(map[string]string{
		"tags": `{"type":"multi_select","multi_select":[{"name":"go"},{"name":"notion"},{"name":"web"}]}`,
	})
	want := []string{"go", "notion", "web"}
	if got := p.MultiSelect("tags"); !reflect.DeepEqual(got, want) {
		t.Errorf("MultiSelect = %v, want %v", got, want)
	}
	if got := p.MultiSelect("missing"); got != nil {
		t.Errorf("missing property = %v, want nil", got)
	}
}

func TestDate(t *testing.T) {
	p := props(map[string]string{
		"date":  `{"type":"date","date":{"start":"2024-03-01"}}`,
		"empty": `{"type":"date","date":null}`,
	})
	if got := p.Date("date"); got != "2024-03-01" {
		t.Errorf("Date = %q", got)
	}
	if got := p.Date("empty"); got != "" {
		t.Errorf("null date = %q, want empty", got)
	}
}

func TestPeople(t *testing.T) {
	p := props(map[string]string{
		"author": `{"type":"people","people":[{"id":"u-1","name":"Ada"},{"id":"u-2","name":"Grace"}]}`,
	})
	if got := p.PeopleNames("author"); got != "Ada, Grace" {
		t.Errorf("PeopleNames = %q", got)
	}
	if got := p.PeopleIDs("author"); !reflect.DeepEqual(got, []string{"u-1", "u-2"}) {
		t.Errorf("PeopleIDs = %v", got)
	}
}

func TestURLFallsBackToRichText(t *testing.T) {
	p := props(map[string]string{
		"website": `{"type":"url","url":"https://ada.example.com"}`,
		"github":  `{"type":"rich_text","rich_text":[{"type":"text","plain_text":"https://github.com/ada","annotations":{}}]}`,
		"nullurl": `{"type":"url","url":null}`,
	})
	if got := p.URL("website"); got != "https://ada.example.com" {
		t.Errorf("url = %q", got)
	}
	if got := p.URL("github"); got != "https://github.com/ada" {
		t.Errorf("rich_text fallback = %q", got)
	}
	if got := p.URL("nullurl"); got != "" {
		t.Errorf("null url = %q, want empty", got)
	}
}

func TestCheckboxAndFiles(t *testing.T) {
	p := props(map[string]string{
		"pinned": `{"type":"checkbox","checkbox":true}`,
		"avatar": `{"type":"files","files":[{"type":"external","external":{"url":"https://cdn.example.com/a.png"}}]}`,
	})
	if !p.Checkbox("pinned") {
		t.Error("Checkbox = false, want true")
	}
	if p.Checkbox("missing") {
		t.Error("missing checkbox should be false")
	}
	if got := p.FileURL("avatar"); got != "https://cdn.example.com/a.png" {
		t.Errorf("FileURL = %q", got)
	}
}

func TestMalformedPropertyIsEmpty(t *testing.T) {
	p := props(map[string]string{
		"bad": `{"type":"select","select":`,
	})
	if got := p.Select("bad"); got != "" {
		t.Errorf("malformed property = %q, want empty", got)
	}
}
