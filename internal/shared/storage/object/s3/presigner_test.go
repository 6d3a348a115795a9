package s3

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"pdfshare-backend/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "documents/u/file.pdf", want: "documents/u/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "documents/u/file.pdf", want: "root/documents/u/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "documents/u/file.pdf", want: "root/documents/u/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/documents/u/file.pdf", want: "root/documents/u/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "documents/u/file.pdf", want: "root/sub/documents/u/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func newOfflinePresigner(prefix string) *Presigner {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
	})
	return NewWithClient(client, "us-east-1", "pdf-bucket", prefix)
}

func TestPresignPutAndGet(t *testing.T) {
	p := newOfflinePresigner("tenant")
	ctx := context.Background()
	key := "documents/abc/1700000000000-report.pdf"

	putURL, err := p.PresignPut(ctx, key, "application/pdf", 5*time.Minute)
	if err != nil {
		t.Fatalf("PresignPut: %v", err)
	}
	u, err := url.Parse(putURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/tenant/"+key) {
		t.Fatalf("unexpected put path: %s", u.Path)
	}
	if got := u.Query().Get("X-Amz-Expires"); got != "300" {
		t.Fatalf("expected X-Amz-Expires=300, got %q", got)
	}

	getURL, err := p.PresignGet(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	gu, err := url.Parse(getURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if got := gu.Query().Get("X-Amz-Expires"); got != "3600" {
		t.Fatalf("expected X-Amz-Expires=3600, got %q", got)
	}
}

func TestObjectURLRoundTripsThroughLocator(t *testing.T) {
	p := newOfflinePresigner("tenant")
	key := "documents/abc/1700000000000-report.pdf"

	locator := p.ObjectURL(key)
	if locator != "https://pdf-bucket.s3.us-east-1.amazonaws.com/tenant/"+key {
		t.Fatalf("unexpected object url: %s", locator)
	}
	got, err := object.KeyFromLocator(locator)
	if err != nil {
		t.Fatalf("KeyFromLocator: %v", err)
	}
	if got != key {
		t.Fatalf("expected %s, got %s", key, got)
	}
}
