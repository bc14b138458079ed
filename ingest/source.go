// Package ingest fetches and decodes keyword network datasets.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source is where a dataset is read from
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// ParseSource picks a source implementation from a location string.
// http(s):// URLs use HTTPSource, s3://bucket/key uses S3Source and
// anything else is treated as a local path.
func ParseSource(location string) (Source, error) {
	switch {
	case location == "":
		return nil, fmt.Errorf("empty dataset location")
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPSource(location, nil), nil
	case strings.HasPrefix(location, "s3://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid s3 location %q: %w", location, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("s3 location %q needs a bucket and a key", location)
		}
		return &S3Source{Bucket: u.Host, Key: key}, nil
	default:
		return FileSource{Path: location}, nil
	}
}

// FileSource reads a dataset from the local filesystem
type FileSource struct {
	Path string
}

func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return f, nil
}

func (s FileSource) String() string { return s.Path }

// HTTPSource fetches a dataset with a GET request
type HTTPSource struct {
	URL    string
	client *http.Client
}

// NewHTTPSource creates an HTTP source. A nil client uses a 30 second timeout.
func NewHTTPSource(rawURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{URL: rawURL, client: client}
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, s.URL, resp.Status)
	}
	return resp.Body, nil
}

func (s *HTTPSource) String() string { return s.URL }

// S3API is the subset of the S3 client used by S3Source
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a dataset object from S3
type S3Source struct {
	Bucket string
	Key    string
	Region string
	Client S3API
}

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		var opts []func(*awsconfig.LoadOptions) error
		if s.Region != "" {
			opts = append(opts, awsconfig.WithRegion(s.Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: loading aws config: %w", ErrFetch, err)
		}
		client = s3.NewFromConfig(cfg)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: s3://%s/%s: %w", ErrFetch, s.Bucket, s.Key, err)
	}
	return out.Body, nil
}

func (s *S3Source) String() string { return "s3://" + s.Bucket + "/" + s.Key }
