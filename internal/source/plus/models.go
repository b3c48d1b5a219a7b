package plus

// ActivityFeed is one page of the activities list response.
type ActivityFeed struct {
	NextPageToken string     `json:"nextPageToken"`
	Updated       string     `json:"updated"`
	Items         []Activity `json:"items"`
}

type Activity struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Published  string `json:"published"`
	Updated    string `json:"updated"`
	URL        string `json:"url"`
	Verb       string `json:"verb"`
	Actor      Actor  `json:"actor"`
	Object     Object `json:"object"`
	Annotation string `json:"annotation"`
	Geocode    string `json:"geocode"`
	Address    string `json:"address"`
	PlaceName  string `json:"placeName"`
}

type Actor struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	URL         string     `json:"url"`
	Image       *ImageInfo `json:"image"`
}

type Object struct {
	ObjectType      string       `json:"objectType"`
	ID              string       `json:"id"`
	Actor           *Actor       `json:"actor"`
	Content         string       `json:"content"`
	OriginalContent string       `json:"originalContent"`
	URL             string       `json:"url"`
	Replies         Counter      `json:"replies"`
	Attachments     []Attachment `json:"attachments"`
}

type Counter struct {
	TotalItems int `json:"totalItems"`
}

type Attachment struct {
	ObjectType  string      `json:"objectType"`
	DisplayName string      `json:"displayName"`
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	URL         string      `json:"url"`
	Image       *ImageInfo  `json:"image"`
	FullImage   *ImageInfo  `json:"fullImage"`
	Embed       *EmbedInfo  `json:"embed"`
	Thumbnails  []Thumbnail `json:"thumbnails"`
}

type ImageInfo struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Height  int    `json:"height"`
	Width   int    `json:"width"`
}

type EmbedInfo struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type Thumbnail struct {
	URL         string     `json:"url"`
	Description string     `json:"description"`
	Image       *ImageInfo `json:"image"`
}

type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// CommentFeed is one page of the comments list response.
type CommentFeed struct {
	NextPageToken string    `json:"nextPageToken"`
	Items         []Comment `json:"items"`
}

type Comment struct {
	ID        string `json:"id"`
	Published string `json:"published"`
	Actor     Actor  `json:"actor"`
	Object    struct {
		Content string `json:"content"`
	} `json:"object"`
}
