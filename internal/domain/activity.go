package domain

import "time"

// FeedItem is one activity fetched from the social feed: an original post or a reshare.
type FeedItem struct {
	ID          string
	Title       string
	URL         string
	Verb        string
	Actor       Person
	Object      Object
	Annotation  string
	Location    *Location
	PublishedAt time.Time
	UpdatedAt   time.Time
}

// IsReshare reports whether the item wraps somebody else's post.
func (i *FeedItem) IsReshare() bool {
	return i.Object.ID != ""
}

type Person struct {
	ID          string
	DisplayName string
	URL         string
	ImageURL    string
}

type Object struct {
	ID          string // set only on reshares
	ObjectType  string
	Actor       Person
	Content     string
	URL         string
	Attachments []Attachment
	Replies     int
}

type AttachmentType string

const (
	AttachmentPhoto   AttachmentType = "photo"
	AttachmentVideo   AttachmentType = "video"
	AttachmentArticle AttachmentType = "article"
	AttachmentAlbum   AttachmentType = "album"
)

type Attachment struct {
	ObjectType  AttachmentType
	ID          string
	DisplayName string
	Content     string
	URL         string
	Image       *Image
	FullImage   *Image
	Embed       *Embed
	Thumbnails  []Thumbnail
}

// IsMedia reports whether the attachment is a single photo or video.
func (a Attachment) IsMedia() bool {
	return a.ObjectType == AttachmentPhoto || a.ObjectType == AttachmentVideo
}

type Image struct {
	URL     string
	Type    string
	Content string
	Width   int
	Height  int
}

type Embed struct {
	URL  string
	Type string
}

// Thumbnail is one member of an album attachment.
type Thumbnail struct {
	URL         string
	Description string
	Image       *Image
}

type Location struct {
	Latitude  string
	Longitude string
	Address   string
	PlaceName string
}

type Comment struct {
	ID          string
	Content     string
	Author      Person
	PublishedAt time.Time
}
