package gazetteer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/USA-RedDragon/campus-nav/internal/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-errors/errors"
	"github.com/klauspost/compress/gzip"
)

// Feeds larger than this are rejected rather than buffered.
const maxFeedSize = 64 << 20

var (
	ErrS3NotConfigured   = errors.New("s3 feed requested but no s3 client is configured")
	ErrUnsupportedScheme = errors.New("unsupported feed scheme")
	ErrEmptyFeedURI      = errors.New("feed uri is empty")
)

// Source yields the raw bytes of a feed. Each call to Open is an independent fetch.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// S3API is the subset of the s3 client used to fetch feeds.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type SourceOptions struct {
	HTTPClient *http.Client
	S3         S3API
}

// NewSource builds a Source from an http(s)://, s3://bucket/key, file:// or bare filesystem URI.
func NewSource(uri string, opts SourceOptions) (Source, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, ErrEmptyFeedURI
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed uri: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		return &httpSource{url: uri, client: opts.HTTPClient}, nil
	case "s3":
		if opts.S3 == nil {
			return nil, ErrS3NotConfigured
		}
		return &s3Source{bucket: u.Host, key: strings.TrimPrefix(u.Path, "/"), client: opts.S3}, nil
	case "file":
		return &fileSource{path: u.Path}, nil
	case "":
		return &fileSource{path: uri}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

type httpSource struct {
	url    string
	client *http.Client
}

func (s *httpSource) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := utils.HTTPRequestWithClient(ctx, s.client, http.MethodGet, s.url, nil, map[string]string{
		"Accept": "application/geo+json, application/json",
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *httpSource) String() string {
	return s.url
}

type fileSource struct {
	path string
}

func (s *fileSource) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(s.path)
}

func (s *fileSource) String() string {
	return s.path
}

type s3Source struct {
	bucket string
	key    string
	client S3API
}

func (s *s3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (s *s3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}

// readFeed drains a source, transparently inflating gzip payloads.
func readFeed(ctx context.Context, src Source) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(io.LimitReader(r, maxFeedSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFeedSize {
		return nil, fmt.Errorf("feed exceeds %d bytes", maxFeedSize)
	}
	return data, nil
}
