package natsobj

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"

	"github.com/leaseway/leaseway/pkg/storage"
)

func TestMetadataFromInfo(t *testing.T) {
	mod := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	headers := nats.Header{}
	headers.Set(headerContentType, "application/pdf")
	headers.Set(headerCacheControl, "max-age=3600")

	info := &jetstream.ObjectInfo{
		ObjectMeta: jetstream.ObjectMeta{
			Name:     "leases/contract.pdf",
			Headers:  headers,
			Metadata: map[string]string{"tenant": "acme"},
		},
		Size:    1024,
		Digest:  "SHA-256=abc",
		ModTime: mod,
	}

	meta := metadataFromInfo(info)
	assert.Equal(t, int64(1024), meta.ContentLength)
	assert.Equal(t, "SHA-256=abc", meta.ETag)
	assert.Equal(t, mod, meta.LastModified)
	assert.Equal(t, "application/pdf", meta.ContentType)
	assert.Equal(t, "max-age=3600", meta.CacheControl)
	assert.Equal(t, "acme", meta.Custom["tenant"])
}

func TestMetadataFromInfoNoHeaders(t *testing.T) {
	info := &jetstream.ObjectInfo{
		ObjectMeta: jetstream.ObjectMeta{Name: "k"},
		Size:       3,
	}

	meta := metadataFromInfo(info)
	assert.Empty(t, meta.ContentType)
	assert.Equal(t, int64(3), meta.ContentLength)
}

func TestSetHeaderSkipsEmpty(t *testing.T) {
	h := nats.Header{}
	setHeader(h, headerContentType, "")
	setHeader(h, headerContentEncoding, "gzip")

	assert.Empty(t, h.Get(headerContentType))
	assert.Equal(t, "gzip", h.Get(headerContentEncoding))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(t.Context(), storage.ObjectStoreConfig{})
	var cfgErr *storage.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
