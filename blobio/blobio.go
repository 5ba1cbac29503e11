// Package blobio provides one Open/Create pair that works the same whether
// a path names a local file or an s3:// object. No other package in this
// module imports it, so -ref/-reads/-workdir take local paths only.
package blobio

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

// IsRemote reports whether path names an s3:// object rather than a local
// file.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

func parseS3URL(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "blobio: parse %s", path)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

var newSession = func() (*session.Session, error) {
	return session.NewSession(aws.NewConfig())
}

// Open returns a ReadCloser for path, downloading the full object into
// memory first when path is an s3:// URL, so the result is a plain
// in-memory reader rather than a streaming range-request API.
func Open(path string) (io.ReadCloser, error) {
	if !IsRemote(path) {
		f, err := os.Open(path)
		return f, errors.Wrapf(err, "blobio: open %s", path)
	}
	bucket, key, err := parseS3URL(path)
	if err != nil {
		return nil, err
	}
	sess, err := newSession()
	if err != nil {
		return nil, errors.Wrap(err, "blobio: create aws session")
	}
	buf := &aws.WriteAtBuffer{}
	downloader := s3manager.NewDownloader(sess)
	if _, err := downloader.Download(buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, errors.Wrapf(err, "blobio: download %s", path)
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// Create returns a WriteCloser for path. Local paths are created directly;
// s3:// paths buffer writes in memory and upload on Close, since the S3
// API has no append-as-you-go object write.
func Create(path string) (io.WriteCloser, error) {
	if !IsRemote(path) {
		f, err := os.Create(path)
		return f, errors.Wrapf(err, "blobio: create %s", path)
	}
	bucket, key, err := parseS3URL(path)
	if err != nil {
		return nil, err
	}
	sess, err := newSession()
	if err != nil {
		return nil, errors.Wrap(err, "blobio: create aws session")
	}
	return &s3Writer{bucket: bucket, key: key, sess: sess}, nil
}

// s3Writer buffers the object body and uploads it in full on Close.
type s3Writer struct {
	bucket, key string
	sess        *session.Session
	buf         bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	uploader := s3manager.NewUploader(w.sess)
	_, err := uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return errors.Wrapf(err, "blobio: upload s3://%s/%s", w.bucket, w.key)
}
