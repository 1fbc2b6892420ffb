package store

import (
	"context"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/minio/minio-go/v7"
)

// ObjectRetriever serves drafting reference material from an S3 prefix.
// It is a plain object reader, not a semantic index: objects under the
// prefix are concatenated in listing order up to topK and maxChars. The
// corpus is maintained by whoever uploads it; retrieval failures degrade to
// empty material.
type ObjectRetriever struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// NewObjectRetriever reuses the block sink's client for reference lookups
// under the given prefix.
func NewObjectRetriever(sink *S3BlockSink, prefix string) *ObjectRetriever {
	if sink == nil || sink.client == nil {
		return nil
	}
	return &ObjectRetriever{Client: sink.client, Bucket: sink.bucket, Prefix: prefix}
}

func (r *ObjectRetriever) Retrieve(ctx context.Context, query string, topK, maxChars int) (string, error) {
	if r == nil || r.Client == nil {
		return "", nil
	}
	if topK <= 0 {
		topK = 4
	}

	var sb strings.Builder
	n := 0
	for obj := range r.Client.ListObjects(ctx, r.Bucket, minio.ListObjectsOptions{Prefix: r.Prefix, Recursive: true}) {
		if obj.Err != nil {
			log.Printf("store: list reference objects failed: %v", obj.Err)
			break
		}
		if n >= topK {
			break
		}
		body, err := r.readObject(ctx, obj.Key, maxChars)
		if err != nil {
			log.Printf("store: read reference object %s failed: %v", obj.Key, err)
			continue
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		sb.WriteString(body)
		sb.WriteString("\n\n")
		n++
		if maxChars > 0 && utf8.RuneCountInString(sb.String()) >= maxChars {
			break
		}
	}

	out := strings.TrimSpace(sb.String())
	if maxChars > 0 && utf8.RuneCountInString(out) > maxChars {
		out = string([]rune(out)[:maxChars])
	}
	return out, nil
}

func (r *ObjectRetriever) readObject(ctx context.Context, key string, maxChars int) (string, error) {
	obj, err := r.Client.GetObject(ctx, r.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", err
	}
	defer obj.Close()

	limit := int64(256 * 1024)
	if maxChars > 0 {
		// Runes may be multi-byte; 4x chars is a safe byte ceiling.
		limit = int64(maxChars) * 4
	}
	b, err := io.ReadAll(io.LimitReader(obj, limit))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
