package storage

import (
	"path"
	"strings"
)

type mediaType struct {
	contentType string
	inline      bool
}

// mediaTypes lists the extensions a stored key may keep. Anything else is
// stored without an extension and served as an attachment.
var mediaTypes = map[string]mediaType{
	".jpg":  {"image/jpeg", true},
	".jpeg": {"image/jpeg", true},
	".png":  {"image/png", true},
	".gif":  {"image/gif", true},
	".webp": {"image/webp", true},
	".mp4":  {"video/mp4", true},
	".m4v":  {"video/x-m4v", true},
	".mov":  {"video/quicktime", true},
	".webm": {"video/webm", true},
	".pdf":  {"application/pdf", true},
	".txt":  {"text/plain; charset=utf-8", true},
	".doc":  {"application/msword", false},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", false},
}

const fallbackContentType = "application/octet-stream"

func knownExt(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if _, ok := mediaTypes[ext]; !ok {
		return ""
	}
	return ext
}

// ContentType reports the type a stored key is served with and whether a
// browser may render it inline.
func ContentType(key string) (string, bool) {
	mt, ok := mediaTypes[knownExt(key)]
	if !ok {
		return fallbackContentType, false
	}
	return mt.contentType, mt.inline
}

// IsImage reports whether a client file name carries an image extension.
func IsImage(filename string) bool {
	ct, _ := ContentType(filename)
	return strings.HasPrefix(ct, "image/")
}
