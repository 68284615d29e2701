package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quillmind-ai/quillmind/pkg/backup"
	"github.com/quillmind-ai/quillmind/pkg/object-storage/s3"
)

var _ backup.Uploader = (*s3.S3)(nil)

func TestUploadPutsObjectUnderBucketKey(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody = string(body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cli := s3.NewS3Client(server.URL, "us-east-1", "quill-backups", "ak", "sk", s3.WithPathStyle(true))
	err := cli.Upload(context.Background(), "/structured-db/structured-20250101-000001.db", strings.NewReader("payload"))
	if err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPut {
		t.Fatalf("method %s", gotMethod)
	}
	if gotPath != "/quill-backups/structured-db/structured-20250101-000001.db" {
		t.Fatalf("path %s", gotPath)
	}
	if gotBody != "payload" {
		t.Fatalf("body %q", gotBody)
	}
}

func TestUploadReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<Error><Code>InternalError</Code><Message>boom</Message></Error>`))
	}))
	defer server.Close()

	cli := s3.NewS3Client(server.URL, "us-east-1", "quill-backups", "ak", "sk", s3.WithPathStyle(true))
	err := cli.Upload(context.Background(), "k", strings.NewReader("payload"))
	if err == nil {
		t.Fatal("expected upload error")
	}
}
