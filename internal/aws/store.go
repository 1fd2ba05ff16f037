package aws

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/transcribe"
)

var _ transcribe.ObjectStore = (*Store)(nil)

type (
	s3API interface {
		HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
		GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	}

	uploader interface {
		Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
	}
)

// Store stages podcast audio in a bucket and reads transcription results back.
type Store struct {
	s3       s3API
	uploader uploader
	http     *http.Client
	bucket   string
}

func NewStore(cfg aws.Config, bucket string) *Store {
	client := s3.NewFromConfig(cfg)
	return &Store{
		s3:       client,
		uploader: manager.NewUploader(client),
		http:     &http.Client{Timeout: 30 * time.Minute},
		bucket:   bucket,
	}
}

// ObjectKey is where the audio for sourceURL lives in the bucket. It only
// depends on the clean URL, so the same audio is staged once.
func ObjectKey(sourceURL string) string {
	clean := podscribe.CleanURL(sourceURL)
	sum := sha256.Sum256([]byte(clean))

	ext := ".mp3"
	if u, err := url.Parse(clean); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); e != "" && len(e) <= 5 {
			ext = e
		}
	}

	return "episodes/" + hex.EncodeToString(sum[:])[:24] + ext
}

// Stage makes sure the audio is in the bucket, downloading it from the source
// when it isn't. Returns an s3:// reference.
func (s *Store) Stage(ctx context.Context, sourceURL string) (string, error) {
	key := ObjectKey(sourceURL)
	ref := fmt.Sprintf("s3://%s/%s", s.bucket, key)

	_, err := s.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		slog.InfoContext(ctx, "audio already staged", "ref", ref)
		return ref, nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return "", fmt.Errorf("error checking staged audio: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating source request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading source audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code downloading source audio: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        resp.Body,
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", fmt.Errorf("error uploading audio: %w", err)
	}

	slog.InfoContext(ctx, "staged audio", "ref", ref, "source", sourceURL)
	return ref, nil
}

// Fetch reads an object by reference. Presigned and non-S3 https URLs are
// fetched over plain HTTP.
func (s *Store) Fetch(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, ok := ParseObjectRef(ref)
	if !ok {
		return s.fetchHTTP(ctx, ref)
	}

	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	byts, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading object: %w", err)
	}

	return byts, nil
}

func (s *Store) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code fetching result: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// ParseObjectRef splits a storage reference into bucket and key. It knows
// s3://bucket/key, path-style https://s3.<region>.amazonaws.com/bucket/key
// and virtual-hosted https://bucket.s3.<region>.amazonaws.com/key.
//
// Presigned URLs report false: their signature is the only way in.
func ParseObjectRef(ref string) (bucket, key string, ok bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", false
	}

	p := strings.TrimPrefix(u.Path, "/")
	switch {
	case u.Scheme == "s3":
		return u.Host, p, u.Host != "" && p != ""
	case u.Scheme != "https" && u.Scheme != "http":
		return "", "", false
	case !strings.HasSuffix(u.Hostname(), ".amazonaws.com"):
		return "", "", false
	case u.Query().Get("X-Amz-Signature") != "":
		return "", "", false
	}

	host := u.Hostname()
	if strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-") {
		bucket, key, found := strings.Cut(p, "/")
		return bucket, key, found && bucket != "" && key != ""
	}
	if i := strings.Index(host, ".s3"); i > 0 {
		return host[:i], p, p != ""
	}

	return "", "", false
}
