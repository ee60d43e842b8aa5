package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocators(t *testing.T) {
	Convey("Given media locators", t, func() {
		loc := Locator(SchemeS3, "videos", "videos/u1/1-abc.mp4")
		So(loc, ShouldEqual, "s3://videos/videos/u1/1-abc.mp4")

		scheme, bucket, key, err := ParseLocator(loc)
		So(err, ShouldBeNil)
		So(scheme, ShouldEqual, SchemeS3)
		So(bucket, ShouldEqual, "videos")
		So(key, ShouldEqual, "videos/u1/1-abc.mp4")

		for _, bad := range []string{"", "s3://", "s3://bucket", "s3://bucket/", "bucket/key", "://b/k"} {
			_, _, _, err := ParseLocator(bad)
			So(errors.Is(err, ErrBadLocator), ShouldBeTrue)
		}
	})

	Convey("Given an upload file name", t, func() {
		now := time.UnixMilli(1700000000000)
		So(ObjectKey("u1", "abc", "Talk.MP4", now), ShouldEqual, "videos/u1/1700000000000-abc.mp4")
		So(ObjectKey("u1", "abc", "recording", now), ShouldEqual, "videos/u1/1700000000000-abc.webm")
		So(ContentType("a.mov"), ShouldEqual, "video/quicktime")
		So(ContentType("a.txt"), ShouldEqual, "application/octet-stream")
	})
}

func TestMemoryMediaStore(t *testing.T) {
	Convey("Given a memory media store", t, func() {
		ctx := context.Background()
		m := NewMemoryMediaStore("videos")

		loc, err := m.Upload(ctx, "videos/u1/a.mp4", strings.NewReader("data"), 4, "video/mp4")
		So(err, ShouldBeNil)
		So(loc, ShouldEqual, "mem://videos/videos/u1/a.mp4")
		b, ok := m.Object("videos/u1/a.mp4")
		So(ok, ShouldBeTrue)
		So(string(b), ShouldEqual, "data")

		Convey("When deleting the object", func() {
			So(m.Delete(ctx, loc), ShouldBeNil)
			So(m.Len(), ShouldEqual, 0)
			So(errors.Is(m.Delete(ctx, loc), ErrNotFound), ShouldBeTrue)
		})

		Convey("When using a foreign locator", func() {
			So(errors.Is(m.Delete(ctx, "s3://videos/videos/u1/a.mp4"), ErrBadLocator), ShouldBeTrue)
			_, err := m.AccessURL(ctx, "mem://other/x", time.Minute)
			So(errors.Is(err, ErrBadLocator), ShouldBeTrue)
		})

		Convey("When pinging", func() {
			bucket, err := m.Ping(ctx)
			So(err, ShouldBeNil)
			So(bucket, ShouldEqual, "videos")
		})
	})
}

// fakeS3 answers the handful of S3 calls MinioStore makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r.Body)

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		f.objects[r.URL.Path] = true
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) hasBucket(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[name]
}

func (f *fakeS3) hasObject(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[path]
}

func TestMinioStore(t *testing.T) {
	Convey("Given an S3 endpoint without the bucket", t, func() {
		fake := &fakeS3{buckets: map[string]bool{}, objects: map[string]bool{}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		ctx := context.Background()
		s, err := NewMinioStore(ctx, MinioConfig{
			Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
			AccessKey: "key",
			SecretKey: "secret",
			Bucket:    "videos",
			Region:    "us-east-1",
		})
		So(err, ShouldBeNil)

		Convey("Then the bucket is created", func() {
			So(fake.hasBucket("videos"), ShouldBeTrue)
			bucket, err := s.Ping(ctx)
			So(err, ShouldBeNil)
			So(bucket, ShouldEqual, "videos")
		})

		Convey("When uploading and deleting a video", func() {
			loc, err := s.Upload(ctx, "videos/u1/a.mp4", strings.NewReader("frames"), 6, "video/mp4")
			So(err, ShouldBeNil)
			So(loc, ShouldEqual, "s3://videos/videos/u1/a.mp4")
			So(fake.hasObject("/videos/videos/u1/a.mp4"), ShouldBeTrue)

			u, err := s.AccessURL(ctx, loc, time.Hour)
			So(err, ShouldBeNil)
			So(u, ShouldContainSubstring, "/videos/videos/u1/a.mp4")
			So(u, ShouldContainSubstring, "X-Amz-Signature=")

			So(s.Delete(ctx, loc), ShouldBeNil)
			So(fake.hasObject("/videos/videos/u1/a.mp4"), ShouldBeFalse)
		})

		Convey("When deleting a locator of another bucket", func() {
			err := s.Delete(ctx, "s3://other/a.mp4")
			So(errors.Is(err, ErrBadLocator), ShouldBeTrue)
		})
	})
}
