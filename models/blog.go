package models

import (
	"encoding/json"
	"time"
)

// Blog represents a published post. The cover image lives in the external
// object store; CoverID is the store-side identifier needed to destroy it.
type Blog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"size:150;not null" json:"title"`
	Slug       string     `gorm:"size:191;not null;uniqueIndex" json:"slug"`
	Excerpt    string     `gorm:"size:200" json:"excerpt"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CoverURL   string     `gorm:"size:512;not null" json:"cover_url"`
	CoverID    string     `gorm:"size:255;not null" json:"cover_id"`
	AuthorID   uint       `gorm:"index;not null" json:"author_id"`
	CategoryID uint       `gorm:"index;not null" json:"category_id"`
	Tags       string     `gorm:"type:text" json:"-"` // JSON array of normalized tag strings
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Author     User       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Category   Category   `gorm:"foreignKey:CategoryID" json:"category"`
	Likes      []BlogLike `json:"likes"`
	Comments   []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments"`
}

// TagList decodes the stored tag column. A corrupt column yields an empty list
// rather than an error so display paths never fail on it.
func (b *Blog) TagList() []string {
	if b.Tags == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(b.Tags), &tags); err != nil {
		return nil
	}
	return tags
}

// SetTagList encodes tags into the stored column.
func (b *Blog) SetTagList(tags []string) {
	if len(tags) == 0 {
		b.Tags = "[]"
		return
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		b.Tags = "[]"
		return
	}
	b.Tags = string(raw)
}

// MarshalJSON exposes tags as a real array in API payloads.
func (b Blog) MarshalJSON() ([]byte, error) {
	type alias Blog
	return json.Marshal(struct {
		alias
		Tags []string `json:"tags"`
	}{alias: alias(b), Tags: b.TagList()})
}

// BlogLike is one entry in a blog's likes set. The composite primary key makes
// liking idempotent at the store level: a second like by the same user
// conflicts on the key instead of adding a row.
type BlogLike struct {
	BlogID    uint      `gorm:"primaryKey;autoIncrement:false" json:"blog_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"-"`
}
