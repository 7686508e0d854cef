package catalog

import (
	"strings"

	"acervo/internal/drive"
)

// Office-suite document types that carry financial content regardless of
// which folder they live in.
var financeMimeTypes = map[string]bool{
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.google-apps.spreadsheet":                                   true,
	"application/vnd.google-apps.presentation":                                  true,
}

var kindContent = map[CollectionKind]ContentType{
	KindAudiobooks: ContentAudiobook,
	KindEbooks:     ContentEbook,
	KindVideos:     ContentVideo,
	KindFinance:    ContentFinanceDoc,
}

// Classify maps one file record to its content type and fallback theme.
// It is a pure function of the record, its parent chain and the root
// collection resolver; it never fails, unmatched input is ContentOther.
func Classify(f drive.FileRecord, rootOf func(id string) CollectionKind) (ContentType, string) {
	theme := ThemeGradientID(f.ID)

	switch {
	case strings.HasPrefix(f.MimeType, "audio/"):
		return ContentAudiobook, theme
	case strings.HasPrefix(f.MimeType, "video/"):
		return ContentVideo, theme
	case f.MimeType == "application/pdf" || f.MimeType == "application/epub+zip":
		if anyParentIs(f, rootOf, KindFinance) {
			return ContentFinanceDoc, theme
		}
		return ContentEbook, theme
	case financeMimeTypes[f.MimeType]:
		return ContentFinanceDoc, theme
	}

	// Fall back to the collection the file's ancestry belongs to.
	for _, parent := range f.ParentIDs {
		if ct, ok := kindContent[rootOf(parent)]; ok {
			return ct, theme
		}
	}
	return ContentOther, theme
}

func anyParentIs(f drive.FileRecord, rootOf func(id string) CollectionKind, kind CollectionKind) bool {
	for _, parent := range f.ParentIDs {
		if rootOf(parent) == kind {
			return true
		}
	}
	return false
}
