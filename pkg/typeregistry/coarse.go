package typeregistry

import (
	"strings"

	"github.com/liquidinvestigations/hoover4/pkg/model"
)

var htmlMimeTypes = map[string]bool{
	"text/html": true, "text/xhtml+xml": true, "application/xhtml+xml": true,
	"application/xaml+xml": true,
	"application/x-hush-pgp-encrypted-html-body":           true,
	"application/x-hush-pgp-encrypted-html-body-multipart": true,
}

var archiveMimeTypes = map[string]bool{
	"application/zip": true, "application/x-tar": true, "application/x-7z-compressed": true,
	"application/x-rar-compressed": true, "application/x-rar": true, "application/x-bzip2": true,
	"application/x-gzip": true, "application/x-lzma": true, "application/x-lzip": true,
	"application/x-xz": true, "application/x-zstd": true, "application/rar": true,
	"application/x-zip": true, "application/x-zip-compressed": true, "application/vnd.rar": true,
}

var docMimeTypes = map[string]bool{
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-word.document.macroEnabled.12":                        true,
	"application/vnd.oasis.opendocument.text":                                 true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template": true,
	"application/rtf": true,
}

var xlsMimeTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":           true,
	"application/vnd.ms-excel":                                                    true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.template":        true,
	"application/vnd.ms-excel.template.macroEnabled.12":                           true,
	"application/vnd.ms-excel.sheet.macroEnabled.12":                              true,
	"application/vnd.oasis.opendocument.spreadsheet":                              true,
	"application/x-excel":                                                         true,
	"application/x-msexcel":                                                       true,
	"application/x-ms-excel":                                                      true,
	"application/x-ms-excel-macro":                                                true,
	"application/x-ms-excel-macroEnabled":                                         true,
	"application/x-ms-excel-template":                                             true,
	"application/x-ms-excel-template-macroEnabled":                                true,
	"application/x-ms-excel-template-macroEnabled.12":                             true,
}

var pptMimeTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.template":     true,
	"application/vnd.ms-powerpoint.template.macroEnabled.12":                    true,
	"application/vnd.ms-powerpoint.slideshow.macroEnabled.12":                   true,
	"application/vnd.oasis.opendocument.presentation":                          true,
	"application/x-powerpoint":                                                  true,
	"application/x-mspowerpoint":                                                true,
	"application/x-ms-powerpoint":                                               true,
	"application/x-ms-powerpoint-macro":                                         true,
	"application/x-ms-powerpoint-macroEnabled":                                  true,
	"application/x-ms-powerpoint-template":                                      true,
	"application/x-ms-powerpoint-template-macroEnabled":                         true,
	"application/x-ms-powerpoint-template-macroEnabled.12":                      true,
}

var emailMimeTypes = map[string]bool{
	"message/rfc822": true, "application/vnd.ms-outlook": true,
	"application/vnd.ms-exchange": true, "application/mbox": true,
}

// CoarseFileType is the fixed total function from MIME type to coarse
// routing category, ported from the original mime_type_mapper.py.
func CoarseFileType(mimeType string) model.CoarseType {
	switch {
	case htmlMimeTypes[mimeType]:
		return model.CoarseHTML
	case archiveMimeTypes[mimeType] || strings.HasPrefix(mimeType, "application/x-zip"):
		return model.CoarseArchive
	case docMimeTypes[mimeType]:
		return model.CoarseDoc
	case xlsMimeTypes[mimeType]:
		return model.CoarseXLS
	case pptMimeTypes[mimeType]:
		return model.CoarsePPT
	case emailMimeTypes[mimeType]:
		return model.CoarseEmail
	case strings.HasPrefix(mimeType, "image/"):
		return model.CoarseImage
	case strings.HasPrefix(mimeType, "video/"):
		return model.CoarseVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return model.CoarseAudio
	case mimeType == "application/pdf":
		return model.CoarsePDF
	case strings.HasPrefix(mimeType, "text/"):
		return model.CoarseText
	default:
		return model.CoarseOther
	}
}

// MagikaGroupToCoarse remaps magika's own group names, which don't match
// the MIME-derived table 1:1.
func MagikaGroupToCoarse(group string) (model.CoarseType, bool) {
	switch group {
	case "document":
		return model.CoarseDoc, true
	case "unknown":
		return model.CoarseOther, true
	default:
		return "", false
	}
}
