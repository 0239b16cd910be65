package client

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// OctetStream is the content type of every file part.
const OctetStream = "application/octet-stream"

// Form is a multipart/form-data body. Parts are written in the order they were added.
type Form struct {
	parts []formPart
}

type formPart struct {
	name     string
	filename string
	value    string
	data     []byte
	isFile   bool
}

// NewForm returns an empty Form.
func NewForm() *Form {
	return &Form{}
}

// Text appends a plain form field.
func (f *Form) Text(name, value string) *Form {
	f.parts = append(f.parts, formPart{name: name, value: value})
	return f
}

// File appends a file part with an explicit filename and an octet-stream content type.
func (f *Form) File(name, filename string, data []byte) *Form {
	f.parts = append(f.parts, formPart{name: name, filename: filename, data: data, isFile: true})
	return f
}

// Len returns the number of parts.
func (f *Form) Len() int {
	return len(f.parts)
}

// encode builds the multipart body and returns it with its content-type header.
func (f *Form) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range f.parts {
		if !p.isFile {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", err
			}
			continue
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			`form-data; name="`+escapeQuotes(p.name)+`"; filename="`+escapeQuotes(p.filename)+`"`)
		header.Set("Content-Type", OctetStream)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(p.data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
