package model

import "encoding/json"

// Page is an online store page.
type Page struct {
	ID             int64   `json:"id,omitempty"`
	Handle         string  `json:"handle,omitempty"`
	Title          string  `json:"title,omitempty"`
	BodyHTML       string  `json:"body_html,omitempty"`
	Author         string  `json:"author,omitempty"`
	TemplateSuffix *string `json:"template_suffix,omitempty"`
	PublishedAt    *string `json:"published_at,omitempty"`
	Extra          Extra   `json:"-"`
}

type pageFields Page

func (p Page) RecordID() int64    { return p.ID }
func (p Page) NaturalKey() string { return p.Handle }

func (p Page) MarshalJSON() ([]byte, error) {
	f := pageFields(p)
	return marshalRecord(&f, p.Extra)
}

func (p *Page) UnmarshalJSON(data []byte) error {
	var f pageFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*p = Page(f)
	p.Extra = extra
	return nil
}

// Blog is a container of articles.
type Blog struct {
	ID             int64   `json:"id,omitempty"`
	Handle         string  `json:"handle,omitempty"`
	Title          string  `json:"title,omitempty"`
	Commentable    string  `json:"commentable,omitempty"`
	Tags           string  `json:"tags,omitempty"`
	TemplateSuffix *string `json:"template_suffix,omitempty"`
	Extra          Extra   `json:"-"`
}

type blogFields Blog

func (b Blog) RecordID() int64    { return b.ID }
func (b Blog) NaturalKey() string { return b.Handle }

func (b Blog) MarshalJSON() ([]byte, error) {
	f := blogFields(b)
	return marshalRecord(&f, b.Extra)
}

func (b *Blog) UnmarshalJSON(data []byte) error {
	var f blogFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*b = Blog(f)
	b.Extra = extra
	return nil
}

// Article is a blog post. It is nested under exactly one blog.
type Article struct {
	ID          int64           `json:"id,omitempty"`
	BlogID      int64           `json:"blog_id,omitempty"`
	Handle      string          `json:"handle,omitempty"`
	Title       string          `json:"title,omitempty"`
	Author      string          `json:"author,omitempty"`
	BodyHTML    string          `json:"body_html,omitempty"`
	SummaryHTML *string         `json:"summary_html,omitempty"`
	Tags        string          `json:"tags,omitempty"`
	PublishedAt *string         `json:"published_at,omitempty"`
	Image       json.RawMessage `json:"image,omitempty"`
	UserID      int64           `json:"user_id,omitempty"`
	CreatedAt   *string         `json:"created_at,omitempty"`
	DeletedAt   *string         `json:"deleted_at,omitempty"`
	Extra       Extra           `json:"-"`
}

type articleFields Article

func (a Article) RecordID() int64    { return a.ID }
func (a Article) NaturalKey() string { return a.Handle }

func (a Article) MarshalJSON() ([]byte, error) {
	f := articleFields(a)
	return marshalRecord(&f, a.Extra)
}

func (a *Article) UnmarshalJSON(data []byte) error {
	var f articleFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*a = Article(f)
	a.Extra = extra
	return nil
}
