package models

import (
	"mime"
	"strings"
)

// FileType tags an attachment. The zero value means no attachment.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeAudio FileType = "audio"
	FileTypeFile  FileType = "file"
	FileTypePDF   FileType = "pdf"
	FileTypeDoc   FileType = "doc"
	FileTypeOther FileType = "other"
)

var fileTypes = map[FileType]struct{}{
	FileTypeImage: {},
	FileTypeVideo: {},
	FileTypeAudio: {},
	FileTypeFile:  {},
	FileTypePDF:   {},
	FileTypeDoc:   {},
	FileTypeOther: {},
}

// Valid reports whether t is one of the known attachment types.
func (t FileType) Valid() bool {
	_, ok := fileTypes[t]
	return ok
}

// Attachment points at a file uploaded ahead of the message.
type Attachment struct {
	URL  string   `json:"url"`
	Type FileType `json:"type"`
}

// FileTypeFromMIME derives the attachment tag from a declared MIME type.
func FileTypeFromMIME(mimeType string) FileType {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mediaType, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mediaType, "audio/"):
		return FileTypeAudio
	case mediaType == "application/pdf":
		return FileTypePDF
	case mediaType == "application/msword",
		mediaType == "application/rtf",
		strings.HasPrefix(mediaType, "application/vnd.openxmlformats-officedocument."),
		strings.HasPrefix(mediaType, "application/vnd.oasis.opendocument.text"):
		return FileTypeDoc
	case mediaType == "application/octet-stream",
		mediaType == "application/zip",
		mediaType == "application/x-zip-compressed":
		return FileTypeFile
	default:
		return FileTypeOther
	}
}
