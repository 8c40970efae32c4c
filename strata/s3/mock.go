package s3

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// -----------------------------------------------------------------------------
// Mock S3 Client for Testing
// -----------------------------------------------------------------------------

// defaultMaxKeys matches the S3 page size.
const defaultMaxKeys = 1000

// MockS3Client is a test double for API. It honors Prefix, Delimiter,
// MaxKeys and continuation tokens.
type MockS3Client struct {
	mu      sync.RWMutex
	objects map[string]struct{}

	// Call counters for test assertions
	HeadObjectCalls    int
	ListObjectsV2Calls int

	// ListErr, when set, fails every ListObjectsV2 call.
	ListErr error
}

// NewMockS3Client creates a new mock S3 client holding the given keys.
func NewMockS3Client(keys ...string) *MockS3Client {
	m := &MockS3Client{objects: make(map[string]struct{})}
	for _, k := range keys {
		m.objects[k] = struct{}{}
	}
	return m
}

// AddObject stores an empty object under key.
func (m *MockS3Client) AddObject(key string) {
	m.mu.Lock()
	m.objects[key] = struct{}{}
	m.mu.Unlock()
}

// HeadObject implements API.HeadObject for testing.
func (m *MockS3Client) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	key := aws.ToString(params.Key)

	m.mu.Lock()
	m.HeadObjectCalls++
	_, exists := m.objects[key]
	m.mu.Unlock()

	if !exists {
		// HEAD responses carry no body, so S3 reports a bare 404 code.
		return nil, &smithyAPIError{code: "NotFound", message: "not found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

// ListObjectsV2 implements API.ListObjectsV2 for testing.
func (m *MockS3Client) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(params.Prefix)
	delim := aws.ToString(params.Delimiter)
	maxKeys := int(aws.ToInt32(params.MaxKeys))
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	after := aws.ToString(params.ContinuationToken)

	m.mu.Lock()
	m.ListObjectsV2Calls++
	if m.ListErr != nil {
		err := m.ListErr
		m.mu.Unlock()
		return nil, err
	}
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.Unlock()
	sort.Strings(keys)

	type item struct {
		name     string
		isPrefix bool
	}
	var items []item
	seen := make(map[string]bool)
	for _, k := range keys {
		if delim != "" {
			rest := strings.TrimPrefix(k, prefix)
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+len(delim)]
				if !seen[cp] {
					seen[cp] = true
					items = append(items, item{name: cp, isPrefix: true})
				}
				continue
			}
		}
		items = append(items, item{name: k})
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	n := 0
	for _, it := range items {
		if after != "" && it.name <= after {
			continue
		}
		if n == maxKeys {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(after)
			break
		}
		if it.isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(it.name)})
		} else {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(it.name)})
		}
		after = it.name
		n++
	}
	out.KeyCount = aws.Int32(int32(n))
	return out, nil
}

// smithyAPIError implements smithy.APIError for testing.
type smithyAPIError struct {
	code    string
	message string
}

func (e *smithyAPIError) Error() string {
	return e.message
}

func (e *smithyAPIError) ErrorCode() string {
	return e.code
}

func (e *smithyAPIError) ErrorMessage() string {
	return e.message
}

func (e *smithyAPIError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultUnknown
}
