// Package netx moves attachment bytes over HTTP: uploading to presigned
// object storage URLs and fetching attachments for outgoing mail.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
)

// DefaultContentType is used when neither the caller nor the remote side
// names one.
const DefaultContentType = "application/octet-stream"

// DefaultAttachmentName is used when the URL path has no usable last segment.
const DefaultAttachmentName = "attachment"

// ErrTooLarge is returned by FetchAttachment when the body exceeds the limit.
var ErrTooLarge = errors.New("attachment too large")

// Attachment is a fetched file ready to be attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadToPresignedURL PUTs data to a presigned object storage URL.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = DefaultContentType
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// FetchAttachment downloads rawURL, reading at most limit bytes.
func FetchAttachment(ctx context.Context, client *http.Client, rawURL string, limit int64) (*Attachment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch attachment: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}

	return &Attachment{
		Filename:    FilenameFromURL(rawURL),
		ContentType: contentTypeOf(resp.Header.Get("Content-Type")),
		Data:        data,
	}, nil
}

// FilenameFromURL returns the last path segment of rawURL, ignoring the
// query string, or DefaultAttachmentName.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultAttachmentName
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return DefaultAttachmentName
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}

func contentTypeOf(header string) string {
	if header == "" {
		return DefaultContentType
	}
	if _, _, err := mime.ParseMediaType(header); err != nil {
		return DefaultContentType
	}
	return header
}
