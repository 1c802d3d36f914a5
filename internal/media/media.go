// Package media turns files and browser data URIs into base64 upload payloads.
package media

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"

	"translatorhub/internal/models"
	contextutils "translatorhub/internal/utils"

	"github.com/gabriel-vasile/mimetype"
)

// Payload is an encoded blob ready for the image or audio endpoints
type Payload struct {
	Kind     models.Mode
	MIMEType string
	// Base64 is standard base64 without any data URI prefix
	Base64 string
	// Size is the decoded length in bytes
	Size int64
	Name string
}

// Empty reports whether there is nothing to upload
func (p Payload) Empty() bool {
	return p.Size == 0 || p.Base64 == ""
}

// IsImage reports whether the MIME type is image/*
func (p Payload) IsImage() bool {
	return strings.HasPrefix(p.MIMEType, "image/")
}

// IsAudio reports whether the MIME type is audio/*
func (p Payload) IsAudio() bool {
	return strings.HasPrefix(p.MIMEType, "audio/")
}

// Attachment returns the metadata shown next to the input area
func (p Payload) Attachment() *models.Attachment {
	if p.Empty() {
		return nil
	}
	return &models.Attachment{Name: p.Name, MIMEType: p.MIMEType, Size: p.Size}
}

// Decode returns the raw bytes
func (p Payload) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(p.Base64)
	if err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityWarn,
			"payload is not valid base64", "", err)
	}
	return data, nil
}

// EncodeBytes sniffs the MIME type of data and base64-encodes it
func EncodeBytes(name string, data []byte) Payload {
	mimeType := normalizeMIME(mimetype.Detect(data).String())
	return Payload{
		Kind:     kindFor(mimeType),
		MIMEType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
		Size:     int64(len(data)),
		Name:     name,
	}
}

// EncodeReader reads r to the end and encodes it
func EncodeReader(name string, r io.Reader) (Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, contextutils.WrapErrorf(err, "failed to read %s", name)
	}
	return EncodeBytes(name, data), nil
}

// EncodeFile reads and encodes the file at path
func EncodeFile(path string) (Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Payload{}, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return EncodeReader(filepath.Base(path), f)
}

// FromDataURI accepts the output of FileReader.readAsDataURL, or bare base64.
// The MIME type comes from the URI when present and is sniffed otherwise.
func FromDataURI(name, s string) (Payload, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Payload{Name: name}, nil
	}

	declared := ""
	data := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return Payload{}, contextutils.NewAppError(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityWarn,
				"malformed data URI", "missing ','")
		}
		params := strings.Split(s[len("data:"):comma], ";")
		isBase64 := false
		for _, p := range params[1:] {
			if strings.EqualFold(strings.TrimSpace(p), "base64") {
				isBase64 = true
			}
		}
		if !isBase64 {
			return Payload{}, contextutils.NewAppError(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityWarn,
				"malformed data URI", "only base64 data URIs are supported")
		}
		declared = strings.ToLower(strings.TrimSpace(params[0]))
		data = s[comma+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Payload{}, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityWarn,
			"payload is not valid base64", "", err)
	}

	mimeType := declared
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(raw).String()
	}
	mimeType = normalizeMIME(mimeType)

	return Payload{
		Kind:     kindFor(mimeType),
		MIMEType: mimeType,
		Base64:   data,
		Size:     int64(len(raw)),
		Name:     name,
	}, nil
}

// StripDataURI removes a "data:...," prefix, leaving the encoded body
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if comma := strings.IndexByte(s, ','); comma >= 0 {
		return s[comma+1:]
	}
	return s
}

// normalizeMIME drops parameters and maps WebM/Ogg containers to their audio types,
// since MediaRecorder output sniffs as video.
func normalizeMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	m = strings.TrimSpace(m)
	switch m {
	case "video/webm":
		return "audio/webm"
	case "video/ogg", "application/ogg":
		return "audio/ogg"
	}
	return m
}

func kindFor(mimeType string) models.Mode {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.ModeImage
	case strings.HasPrefix(mimeType, "audio/"):
		return models.ModeAudio
	default:
		return models.ModeText
	}
}
