// Copyright (c) 2026 ViewTube. All rights reserved.

// Package media abstracts binary object storage for user-supplied images.
//
// # Architecture
//
// Handlers receive multipart uploads and hand the streams to a [Storage]
// implementation; the rest of the system only ever sees the resulting public
// URL. The production implementation is S3-compatible (MinIO).
package media

import (
	"context"
	"io"
)

// Upload describes a single inbound binary object.
type Upload struct {
	// Prefix groups objects by purpose inside the bucket ("avatars", "covers").
	Prefix string

	// Filename is the client-supplied name; only its extension is trusted.
	Filename string

	// ContentType is the MIME type declared in the multipart part header.
	ContentType string

	// Size is the exact byte length of Body.
	Size int64

	// Body is the object payload. The caller retains ownership and closes it.
	Body io.Reader
}

// Storage stores binary objects and resolves their public URLs.
type Storage interface {
	// Put stores the upload under a freshly generated key and returns the
	// public URL the object is reachable at.
	Put(ctx context.Context, upload Upload) (string, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
