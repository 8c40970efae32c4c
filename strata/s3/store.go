// Package s3 provides an S3-compatible archive adapter for strata.
//
// This adapter supports AWS S3, MinIO, LocalStack, Cloudflare R2,
// and other S3-compatible object stores.
//
// # Directory semantics
//
// Object stores have no directories. A directory exists when at least one
// key lies beneath it; ReadDir lists with the "/" delimiter and reports
// common prefixes as directories and objects as files. Zero-byte directory
// marker objects (keys ending in "/") are ignored.
//
// # Consistency
//
// AWS S3 provides strong read-after-write consistency for listings.
// Other S3-compatible backends may lag; strata treats the archive as
// read-only and tolerates listings that miss fresh writes.
package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pithecene-io/strata/strata"
)

const delimiter = "/"

// API defines the subset of the S3 client interface used by the archive.
// This enables testing with mock implementations.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds configuration for the S3 archive.
type Config struct {
	// Bucket is the S3 bucket name. Required.
	Bucket string

	// Prefix is an optional key prefix that acts as the archive root.
	// A trailing slash is added if missing.
	Prefix string
}

// Archive implements strata.Archive over an S3-compatible bucket.
type Archive struct {
	client API
	bucket string
	prefix string
}

// New creates an S3 archive with the given client and configuration.
//
// The client must be pre-configured with credentials, region, and endpoint.
func New(client API, cfg Config) (*Archive, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, delimiter) {
		prefix += delimiter
	}

	return &Archive{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// Root returns the s3:// URL of the archive root.
func (a *Archive) Root() string {
	return "s3://" + a.bucket + "/" + a.prefix
}

// ReadDir lists the immediate children of dir.
// Pagination is handled automatically.
// Returns strata.ErrNotFound when nothing lies beneath a non-root dir.
func (a *Archive) ReadDir(ctx context.Context, dir string) ([]strata.Entry, error) {
	fullPrefix, err := a.dirPrefix(dir)
	if err != nil {
		return nil, err
	}

	var entries []strata.Entry
	var continuationToken *string
	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(a.bucket),
			Prefix:            aws.String(fullPrefix),
			Delimiter:         aws.String(delimiter),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: list objects: %w", err)
		}

		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), fullPrefix), delimiter)
			if name != "" {
				entries = append(entries, strata.Entry{Name: name, Kind: strata.KindDir})
			}
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), fullPrefix)
			if name == "" || strings.Contains(name, delimiter) {
				continue
			}
			entries = append(entries, strata.Entry{Name: name, Kind: strata.KindFile})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}

	if len(entries) == 0 && fullPrefix != a.prefix {
		return nil, fmt.Errorf("s3: read dir %q: %w", dir, strata.ErrNotFound)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Stat reports whether p is an object or a prefix with objects beneath it.
func (a *Archive) Stat(ctx context.Context, p string) (strata.Entry, error) {
	fullKey, err := a.validateKey(p)
	if err != nil {
		if errors.Is(err, strata.ErrInvalidPath) && isRoot(p) {
			return strata.Entry{Kind: strata.KindDir}, nil
		}
		return strata.Entry{}, err
	}
	name := path.Base(fullKey)

	_, err = a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(fullKey),
	})
	if err == nil {
		return strata.Entry{Name: name, Kind: strata.KindFile}, nil
	}
	if !isNotFound(err) {
		return strata.Entry{}, fmt.Errorf("s3: head object: %w", err)
	}

	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(fullKey + delimiter),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return strata.Entry{}, fmt.Errorf("s3: list objects: %w", err)
	}
	if len(out.Contents) > 0 || len(out.CommonPrefixes) > 0 {
		return strata.Entry{Name: name, Kind: strata.KindDir}, nil
	}
	return strata.Entry{}, fmt.Errorf("s3: stat %q: %w", p, strata.ErrNotFound)
}

// validateKey validates and returns the full key for an archive path.
func (a *Archive) validateKey(key string) (string, error) {
	if key == "" {
		return "", strata.ErrInvalidPath
	}

	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", strata.ErrInvalidPath
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", strata.ErrInvalidPath
	}

	return a.prefix + cleaned, nil
}

// dirPrefix validates dir and returns the listing prefix beneath it.
func (a *Archive) dirPrefix(dir string) (string, error) {
	if isRoot(dir) {
		return a.prefix, nil
	}
	fullKey, err := a.validateKey(dir)
	if err != nil {
		return "", err
	}
	return fullKey + delimiter, nil
}

func isRoot(p string) bool {
	if p == "" {
		return true
	}
	cleaned := path.Clean(p)
	return cleaned == "." || cleaned == "/"
}

// isNotFound checks if an error indicates the object was not found.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}
