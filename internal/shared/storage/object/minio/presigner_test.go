package minio

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfshare-backend/internal/shared/storage/object"
)

type fakeAPI struct {
	exists     bool
	existsErr  error
	made       []string
	presignErr error
	lastTTL    time.Duration
	lastParams url.Values
}

func (f *fakeAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	f.made = append(f.made, bucketName)
	return nil
}

func (f *fakeAPI) PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	f.lastTTL = expires
	return url.Parse("http://localhost:9000/" + bucketName + "/" + objectName + "?X-Amz-Signature=put")
}

func (f *fakeAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	f.lastTTL = expires
	f.lastParams = reqParams
	return url.Parse("http://localhost:9000/" + bucketName + "/" + objectName + "?X-Amz-Signature=get")
}

var testOpts = Options{Endpoint: "localhost:9000", Bucket: "pdfshare"}

func TestNewCreatesMissingBucket(t *testing.T) {
	api := &fakeAPI{exists: false}
	_, err := NewWithAPI(context.Background(), api, testOpts)
	require.NoError(t, err)
	assert.Equal(t, []string{"pdfshare"}, api.made)

	api = &fakeAPI{exists: true}
	_, err = NewWithAPI(context.Background(), api, testOpts)
	require.NoError(t, err)
	assert.Empty(t, api.made)
}

func TestNewFailsWhenBucketCheckFails(t *testing.T) {
	api := &fakeAPI{existsErr: errors.New("connection refused")}
	_, err := NewWithAPI(context.Background(), api, testOpts)
	assert.Error(t, err)
}

func TestPresign(t *testing.T) {
	api := &fakeAPI{exists: true}
	p, err := NewWithAPI(context.Background(), api, testOpts)
	require.NoError(t, err)
	key := "documents/abc/1-report.pdf"

	putURL, err := p.PresignPut(context.Background(), key, "application/pdf", 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, putURL, "/pdfshare/"+key)
	assert.Equal(t, 5*time.Minute, api.lastTTL)

	getURL, err := p.PresignGet(context.Background(), key, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, getURL, "X-Amz-Signature=get")
	assert.Equal(t, "application/pdf", api.lastParams.Get("response-content-type"))

	api.presignErr = errors.New("boom")
	_, err = p.PresignGet(context.Background(), key, time.Hour)
	assert.Error(t, err)
}

func TestObjectURL(t *testing.T) {
	p, err := NewWithAPI(context.Background(), &fakeAPI{exists: true}, testOpts)
	require.NoError(t, err)
	key := "documents/abc/1-report.pdf"

	locator := p.ObjectURL(key)
	assert.Equal(t, "http://localhost:9000/pdfshare/"+key, locator)

	got, err := object.KeyFromLocator(locator)
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.Equal(t, "minio", p.Provider())
}
