package banter

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// MaxAttachmentSize caps attachment payloads at 20 MiB.
const MaxAttachmentSize = 20 << 20

// Attachment is the transport-ready form of a validated image. It is scoped
// to a single in-flight send and never persisted.
type Attachment struct {
	MediaType string
	Payload   string // base64
}

// mediaTypeOf returns the declared media type for a file, from its extension.
func mediaTypeOf(path string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
}

// ValidateAttachment rejects files that are not images or exceed the size
// cap. Failures are user-facing validation errors, not bugs.
func ValidateAttachment(path string) error {
	mt := mediaTypeOf(path)
	if !strings.HasPrefix(mt, "image/") {
		return &AttachmentRejectedError{Reason: "only image files can be attached"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &AttachmentReadError{Err: err}
	}
	if info.Size() > MaxAttachmentSize {
		return &AttachmentRejectedError{Reason: fmt.Sprintf("image exceeds the %d MiB limit", MaxAttachmentSize>>20)}
	}
	return nil
}

// EncodeAttachment reads the file fully and returns its transport encoding.
func EncodeAttachment(path string) (*Attachment, error) {
	if err := ValidateAttachment(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &AttachmentReadError{Err: err}
	}
	return &Attachment{
		MediaType: mediaTypeOf(path),
		Payload:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Preview is an ephemeral, locally dereferenceable handle for immediate
// display. The holder releases it when it is superseded.
type Preview struct {
	Path     string
	released bool
}

// Release removes the preview's backing file. Safe to call more than once.
func (p *Preview) Release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	_ = os.Remove(p.Path)
}

// NewPreview copies the file into a temporary location and hands back a
// releasable handle to it.
func NewPreview(path string) (*Preview, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, &AttachmentReadError{Err: err}
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "banter-preview-*"+filepath.Ext(path))
	if err != nil {
		return nil, &AttachmentReadError{Err: err}
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return nil, &AttachmentReadError{Err: err}
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return nil, &AttachmentReadError{Err: err}
	}
	return &Preview{Path: dst.Name()}, nil
}

// PendingAttachment is the single attachment staged for the next send.
type PendingAttachment struct {
	Path      string
	MediaType string
	Preview   *Preview
}

// AttachmentPicker holds at most one pending attachment. Picking a new file
// supersedes the previous one and releases its preview.
type AttachmentPicker struct {
	pending *PendingAttachment
}

// NewAttachmentPicker creates an empty picker.
func NewAttachmentPicker() *AttachmentPicker {
	return &AttachmentPicker{}
}

// Pick validates the file, stages it, and produces its preview. Any
// previously pending attachment is superseded.
func (p *AttachmentPicker) Pick(path string) error {
	if err := ValidateAttachment(path); err != nil {
		return err
	}
	preview, err := NewPreview(path)
	if err != nil {
		return err
	}
	p.Clear()
	p.pending = &PendingAttachment{
		Path:      path,
		MediaType: mediaTypeOf(path),
		Preview:   preview,
	}
	return nil
}

// Pending returns the staged attachment, or nil.
func (p *AttachmentPicker) Pending() *PendingAttachment { return p.pending }

// Encode produces the transport encoding of the staged attachment, or nil
// when nothing is pending.
func (p *AttachmentPicker) Encode() (*Attachment, error) {
	if p.pending == nil {
		return nil, nil
	}
	return EncodeAttachment(p.pending.Path)
}

// Clear drops the pending attachment and releases its preview.
func (p *AttachmentPicker) Clear() {
	if p.pending != nil {
		p.pending.Preview.Release()
		p.pending = nil
	}
}
