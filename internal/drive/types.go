package drive

import "time"

// MimeTypeFolder marks a remote object that is a folder, not a file.
const MimeTypeFolder = "application/vnd.google-apps.folder"

// FileRecord is an immutable snapshot of one remote object. It is never
// mutated after decoding.
type FileRecord struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	MimeType        string    `json:"mimeType"`
	ParentIDs       []string  `json:"parents"`
	ModifiedAt      time.Time `json:"modifiedTime"`
	SizeBytes       int64     `json:"size,string"`
	ThumbnailRef    string    `json:"thumbnailLink"`
	ExternalViewRef string    `json:"webViewLink"`
}

// IsFolder reports whether the record is a folder node.
func (f FileRecord) IsFolder() bool {
	return f.MimeType == MimeTypeFolder
}

// PrimaryParent returns the first parent id, or "" for parentless records.
func (f FileRecord) PrimaryParent() string {
	if len(f.ParentIDs) == 0 {
		return ""
	}
	return f.ParentIDs[0]
}

type listResponse struct {
	Files         []FileRecord `json:"files"`
	NextPageToken string       `json:"nextPageToken"`
}
