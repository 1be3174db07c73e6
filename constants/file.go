package constants

import "strings"

// FileFormat is the coarse format stored on extract jobs.
type FileFormat = string

const (
	PDF   FileFormat = "PDF"
	IMAGE FileFormat = "IMAGE"
)

// AllowedExtensions holds the default allowed file extensions for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns PDF or IMAGE for an extension, or "" if the
// extension is not supported.
func MapExtToFormat(ext string) FileFormat {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "heic", "heif", "tif", "tiff", "bmp", "webp":
		return IMAGE
	default:
		return ""
	}
}

// IsHEICExt reports whether ext is one of the HEIC/HEIF family that needs
// conversion before preprocessing or upload.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif", "heics", "heifs":
		return true
	}
	return false
}

// ImageConfidenceThreshold is the blended OCR confidence below which an
// extraction is flagged for review.
const ImageConfidenceThreshold = 0.6

// MaxVisionMBDefault caps the size of a single page image attached to a
// model request.
const MaxVisionMBDefault = 15
