package render

import (
	"github.com/samber/lo"

	"pluspress/internal/domain"
)

// Classify decides the rendering kind of a feed object. The first matching
// rule wins: albums or several media items make a gallery, then articles make
// a web page, then a single photo or video keeps its own type.
func Classify(obj domain.Object) domain.Kind {
	media := mediaAttachments(obj.Attachments)

	switch {
	case len(media) > 1 || lo.ContainsBy(obj.Attachments, isType(domain.AttachmentAlbum)):
		return domain.KindGallery
	case lo.ContainsBy(obj.Attachments, isType(domain.AttachmentArticle)):
		return domain.KindWebPage
	case len(media) == 1 && media[0].ObjectType == domain.AttachmentVideo:
		return domain.KindVideo
	case len(media) == 1:
		return domain.KindPhoto
	default:
		return domain.KindText
	}
}

func mediaAttachments(atts []domain.Attachment) []domain.Attachment {
	return lo.Filter(atts, func(a domain.Attachment, _ int) bool {
		return a.IsMedia()
	})
}

func isType(t domain.AttachmentType) func(domain.Attachment) bool {
	return func(a domain.Attachment) bool {
		return a.ObjectType == t
	}
}
