package notion

import "encoding/json"

// BlockType enumerates the block kinds this service renders. Anything
// outside this set is kept as an opaque node and rendered as nothing.
type BlockType string

const (
	BlockParagraph        BlockType = "paragraph"
	BlockHeading1         BlockType = "heading_1"
	BlockHeading2         BlockType = "heading_2"
	BlockHeading3         BlockType = "heading_3"
	BlockCode             BlockType = "code"
	BlockCallout          BlockType = "callout"
	BlockQuote            BlockType = "quote"
	BlockToggle           BlockType = "toggle"
	BlockToDo             BlockType = "to_do"
	BlockImage            BlockType = "image"
	BlockVideo            BlockType = "video"
	BlockAudio            BlockType = "audio"
	BlockFile             BlockType = "file"
	BlockPDF              BlockType = "pdf"
	BlockDivider          BlockType = "divider"
	BlockBookmark         BlockType = "bookmark"
	BlockLinkPreview      BlockType = "link_preview"
	BlockEmbed            BlockType = "embed"
	BlockTable            BlockType = "table"
	BlockTableRow         BlockType = "table_row"
	BlockColumnList       BlockType = "column_list"
	BlockColumn           BlockType = "column"
	BlockSyncedBlock      BlockType = "synced_block"
	BlockLinkToPage       BlockType = "link_to_page"
	BlockEquation         BlockType = "equation"
	BlockBulletedListItem BlockType = "bulleted_list_item"
	BlockNumberedListItem BlockType = "numbered_list_item"
)

// Annotations carries the inline styling flags of one rich text run.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// RichText is one run of inline content. Type distinguishes plain text
// runs from inline equations; mentions keep their plain text only.
type RichText struct {
	Type        string      `json:"type"`
	PlainText   string      `json:"plain_text"`
	Href        string      `json:"href,omitempty"`
	Annotations Annotations `json:"annotations"`
	Expression  string      `json:"-"`
}

type richTextRaw struct {
	Type        string      `json:"type"`
	PlainText   string      `json:"plain_text"`
	Href        *string     `json:"href"`
	Annotations Annotations `json:"annotations"`
	Equation    *struct {
		Expression string `json:"expression"`
	} `json:"equation"`
}

func (r *RichText) UnmarshalJSON(data []byte) error {
	var raw richTextRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Type = raw.Type
	r.PlainText = raw.PlainText
	r.Annotations = raw.Annotations
	if raw.Href != nil {
		r.Href = *raw.Href
	}
	if raw.Equation != nil {
		r.Expression = raw.Equation.Expression
	}
	return nil
}

// PlainText concatenates the plain text of all runs.
func PlainText(runs []RichText) string {
	var out string
	for _, r := range runs {
		out += r.PlainText
	}
	return out
}

// TextPayload is shared by paragraph, headings, quote, toggle and list items.
type TextPayload struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
}

type CodePayload struct {
	RichText []RichText `json:"rich_text"`
	Caption  []RichText `json:"caption,omitempty"`
	Language string     `json:"language"`
}

type CalloutPayload struct {
	RichText []RichText `json:"rich_text"`
	Icon     string     `json:"-"`
	Color    string     `json:"color,omitempty"`
}

type calloutRaw struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color"`
	Icon     *struct {
		Type  string `json:"type"`
		Emoji string `json:"emoji"`
	} `json:"icon"`
}

func (p *CalloutPayload) UnmarshalJSON(data []byte) error {
	var raw calloutRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.RichText = raw.RichText
	p.Color = raw.Color
	if raw.Icon != nil && raw.Icon.Type == "emoji" {
		p.Icon = raw.Icon.Emoji
	}
	return nil
}

type ToDoPayload struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

// FilePayload is shared by image, video, audio, file and pdf blocks.
// URL resolves the internal "file" and "external" variants; External
// reports which one the source used.
type FilePayload struct {
	URL      string     `json:"-"`
	External bool       `json:"-"`
	Caption  []RichText `json:"-"`
	Name     string     `json:"-"`

	// Blur is filled in by the asset cache for materialized images.
	Blur string `json:"-"`
}

type filePayloadRaw struct {
	Type string `json:"type"`
	File *struct {
		URL string `json:"url"`
	} `json:"file"`
	External *struct {
		URL string `json:"url"`
	} `json:"external"`
	Caption []RichText `json:"caption"`
	Name    string     `json:"name"`
}

func (p *FilePayload) UnmarshalJSON(data []byte) error {
	var raw filePayloadRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Caption = raw.Caption
	p.Name = raw.Name
	switch {
	case raw.Type == "external" && raw.External != nil:
		p.URL = raw.External.URL
		p.External = true
	case raw.File != nil:
		p.URL = raw.File.URL
	case raw.External != nil:
		p.URL = raw.External.URL
		p.External = true
	}
	return nil
}

// LinkPayload is shared by bookmark, link_preview and embed blocks.
type LinkPayload struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

type TablePayload struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

type TableRowPayload struct {
	Cells [][]RichText `json:"cells"`
}

type EquationPayload struct {
	Expression string `json:"expression"`
}

type LinkToPagePayload struct {
	PageID string `json:"page_id"`
}

// LinkMetadata is the Open Graph sidecar attached to bookmark and
// link_preview blocks by the link preview enricher.
type LinkMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Favicon     string `json:"favicon"`
	SiteName    string `json:"site_name"`
}

// Block is one node of a page's content tree. Exactly one payload field
// matching Type is set; all others are nil. Children is nil when the
// source never flagged the node as having descendants, and non-nil
// (possibly empty) once a resolution pass has run.
type Block struct {
	ID          string
	Type        BlockType
	HasChildren bool
	Children    []Block

	Text       *TextPayload
	Code       *CodePayload
	Callout    *CalloutPayload
	ToDo       *ToDoPayload
	File       *FilePayload
	Link       *LinkPayload
	Table      *TablePayload
	TableRow   *TableRowPayload
	Equation   *EquationPayload
	LinkToPage *LinkToPagePayload

	// LinkMeta is set by the enricher for bookmark/link_preview blocks.
	LinkMeta *LinkMetadata
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var head struct {
		ID          string    `json:"id"`
		Type        BlockType `json:"type"`
		HasChildren bool      `json:"has_children"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.ID = head.ID
	b.Type = head.Type
	b.HasChildren = head.HasChildren

	var full map[string]json.RawMessage
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	payload, ok := full[string(head.Type)]
	if !ok {
		return nil
	}

	decode := func(v interface{}) error { return json.Unmarshal(payload, v) }

	switch head.Type {
	case BlockParagraph, BlockHeading1, BlockHeading2, BlockHeading3,
		BlockQuote, BlockToggle, BlockBulletedListItem, BlockNumberedListItem:
		b.Text = &TextPayload{}
		return decode(b.Text)
	case BlockCode:
		b.Code = &CodePayload{}
		return decode(b.Code)
	case BlockCallout:
		b.Callout = &CalloutPayload{}
		return decode(b.Callout)
	case BlockToDo:
		b.ToDo = &ToDoPayload{}
		return decode(b.ToDo)
	case BlockImage, BlockVideo, BlockAudio, BlockFile, BlockPDF:
		b.File = &FilePayload{}
		return decode(b.File)
	case BlockBookmark, BlockLinkPreview, BlockEmbed:
		b.Link = &LinkPayload{}
		return decode(b.Link)
	case BlockTable:
		b.Table = &TablePayload{}
		return decode(b.Table)
	case BlockTableRow:
		b.TableRow = &TableRowPayload{}
		return decode(b.TableRow)
	case BlockEquation:
		b.Equation = &EquationPayload{}
		return decode(b.Equation)
	case BlockLinkToPage:
		b.LinkToPage = &LinkToPagePayload{}
		return decode(b.LinkToPage)
	case BlockDivider, BlockColumnList, BlockColumn, BlockSyncedBlock:
		return nil
	default:
		// Unrendered block types keep ID/Type only.
		return nil
	}
}

// RichTextRuns returns the inline runs of the block's primary payload,
// or nil for blocks without inline content.
func (b *Block) RichTextRuns() []RichText {
	switch {
	case b.Text != nil:
		return b.Text.RichText
	case b.Code != nil:
		return b.Code.RichText
	case b.Callout != nil:
		return b.Callout.RichText
	case b.ToDo != nil:
		return b.ToDo.RichText
	}
	return nil
}
