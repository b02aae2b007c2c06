package models

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const (
	MOV  = ".mov"
	MP4  = ".mp4"
	JPG  = ".jpg"
	JPEG = ".jpeg"
	PNG  = ".png"
	WEBP = ".webp"
)

var (
	VideoTypes = []string{MP4, MOV}
	ImageTypes = []string{JPG, JPEG, PNG, WEBP}
)

// Kind classifies a file name by its extension.
type Kind int

const (
	Unclassified Kind = iota
	Image
	Video
)

// KindOf returns the media kind of the given file name, matching extensions case-insensitively.
func KindOf(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	for _, t := range VideoTypes {
		if ext == t {
			return Video
		}
	}
	for _, t := range ImageTypes {
		if ext == t {
			return Image
		}
	}

	return Unclassified
}

// MimeType infers the MIME type of a file from its extension.
func MimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case JPG, JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	case WEBP:
		return "image/webp"
	case MP4:
		return "video/mp4"
	case MOV:
		return "video/quicktime"
	}

	return "application/octet-stream"
}

// Source identifies which messaging app a granted folder belongs to.
type Source string

const (
	WhatsApp Source = "whatsapp"
	Business Source = "business"
)

func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(s)) {
	case WhatsApp, "":
		return WhatsApp, nil
	case Business:
		return Business, nil
	}

	return "", fmt.Errorf("unknown source %q", s)
}

// Location is an opaque handle to the bytes of a media item. Source entries use the
// file scheme, library entries use the media scheme (media://<collection>/<id>).
type Location string

const (
	FileScheme  = "file"
	MediaScheme = "media"
)

func FileLocation(path string) Location {
	u := url.URL{Scheme: FileScheme, Path: filepath.ToSlash(path)}
	return Location(u.String())
}

func MediaLocation(collection, id string) Location {
	u := url.URL{Scheme: MediaScheme, Host: collection, Path: "/" + id}
	return Location(u.String())
}

func (l Location) String() string {
	return string(l)
}

func (l Location) Scheme() string {
	u, err := url.Parse(string(l))
	if err != nil {
		return ""
	}
	return u.Scheme
}

// Path returns the file path of a file location.
func (l Location) Path() (string, error) {
	u, err := url.Parse(string(l))
	if err != nil {
		return "", err
	}
	if u.Scheme != FileScheme {
		return "", fmt.Errorf("%w: not a file location: %v", ErrUnsupported, l)
	}

	return filepath.FromSlash(u.Path), nil
}

// MediaID returns the collection and id of a media location.
func (l Location) MediaID() (string, string, error) {
	u, err := url.Parse(string(l))
	if err != nil {
		return "", "", err
	}
	if u.Scheme != MediaScheme {
		return "", "", fmt.Errorf("%w: not a media location: %v", ErrUnsupported, l)
	}

	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// Media describes a single status or saved item. It is never mutated after construction.
type Media struct {
	Location     Location
	IsVideo      bool
	DisplayName  string
	LastModified int64 // milliseconds since epoch
}

func (m Media) MimeType() string {
	return MimeType(m.DisplayName)
}
