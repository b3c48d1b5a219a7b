package domain

// Kind is the rendering category of a feed item.
type Kind int

const (
	KindText Kind = iota
	KindGallery
	KindWebPage
	KindPhoto
	KindVideo
)

// Kinds lists every rendering category.
var Kinds = []Kind{KindText, KindGallery, KindWebPage, KindPhoto, KindVideo}

func (k Kind) String() string {
	switch k {
	case KindGallery:
		return "gallery"
	case KindWebPage:
		return "web page"
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	default:
		return "text"
	}
}

// Noun is the word used for the kind in reshare titles.
func (k Kind) Noun() string {
	if k == KindText {
		return "post"
	}
	return k.String()
}

// RenderedPost is a feed item converted to blog markup.
type RenderedPost struct {
	SourceID string
	Title    string
	Body     string
	Kind     Kind
	Reshare  bool
	PostID   string
}

func (p *RenderedPost) IsEmpty() bool {
	return p.Title == "" && p.Body == ""
}

// BlogPost is a post already published on the blog.
type BlogPost struct {
	ID           string
	Title        string
	Content      string
	CustomFields []CustomField
}

type CustomField struct {
	ID    string
	Key   string
	Value string
}

// EmbedInfo is the metadata returned by an oEmbed provider.
type EmbedInfo struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	HTML         string `json:"html"`
	ThumbnailURL string `json:"thumbnail_url"`
	URL          string `json:"url"`
	AuthorName   string `json:"author_name"`
	ProviderName string `json:"provider_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}
