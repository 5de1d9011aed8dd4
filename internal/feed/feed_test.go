package feed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"trainfeed/internal/transport"
	"trainfeed/pkg/logx"
)

// fakeTransport records calls and fails on demand.
type fakeTransport struct {
	posts   []transport.Update
	uploads [][]byte

	postErrAt    map[int]error // 0-based index into posts
	postStatusAt map[int]int
	uploadErr    error
	uploadStatus int
	mediaRef     transport.MediaRef
}

func (f *fakeTransport) PostUpdate(_ context.Context, up transport.Update) (transport.Response, error) {
	idx := len(f.posts)
	f.posts = append(f.posts, up)
	if err := f.postErrAt[idx]; err != nil {
		return transport.Response{}, err
	}
	if st, ok := f.postStatusAt[idx]; ok {
		return transport.Response{StatusCode: st, Body: "rejected"}, nil
	}
	return transport.Response{StatusCode: 200, Body: "{}"}, nil
}

func (f *fakeTransport) UploadMedia(_ context.Context, data []byte) (transport.MediaRef, transport.Response, error) {
	f.uploads = append(f.uploads, data)
	if f.uploadErr != nil {
		return "", transport.Response{}, f.uploadErr
	}
	if f.uploadStatus != 0 && f.uploadStatus/100 != 2 {
		return "", transport.Response{StatusCode: f.uploadStatus, Body: "upload rejected"}, nil
	}
	ref := f.mediaRef
	if ref == "" {
		ref = "m-1"
	}
	return ref, transport.Response{StatusCode: 200}, nil
}

func TestPostTextAtomic(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	c := NewChannel(ft, []transport.Recipient{"9"}, logx.Nop())

	long := strings.Repeat("a", 300)
	res := c.PostText(context.Background(), long)
	if !res.OK {
		t.Fatalf("PostText failed: %+v", res)
	}
	if len(ft.posts) != 1 || ft.posts[0].Text != long {
		t.Fatalf("PostText must not split; posts = %d", len(ft.posts))
	}
	if len(ft.posts[0].Recipients) != 1 || ft.posts[0].Recipients[0] != "9" {
		t.Fatalf("recipients not forwarded: %v", ft.posts[0].Recipients)
	}
}

func TestPostTextLongReversedOrder(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	c := NewChannel(ft, nil, logx.Nop())

	// 300 chars -> raw piece 126 -> 3 chunks.
	msg := strings.Repeat("x", 300)
	results := c.PostTextLong(context.Background(), msg)
	if len(results) != 3 || len(ft.posts) != 3 {
		t.Fatalf("expected 3 chunk posts, got %d results / %d posts", len(results), len(ft.posts))
	}

	// Last logical chunk first: starts with the marker, no trailing marker.
	if !strings.HasPrefix(ft.posts[0].Text, ContinuationMarker) || strings.HasSuffix(ft.posts[0].Text, ContinuationMarker) {
		t.Fatalf("first post is not the last chunk: %q", ft.posts[0].Text)
	}
	// First logical chunk last: trailing marker only.
	if strings.HasPrefix(ft.posts[2].Text, ContinuationMarker) || !strings.HasSuffix(ft.posts[2].Text, ContinuationMarker) {
		t.Fatalf("last post is not the first chunk: %q", ft.posts[2].Text)
	}
	for i, p := range ft.posts {
		if n := len([]rune(p.Text)); n > MaxPostLen {
			t.Fatalf("post %d is %d runes", i, n)
		}
	}
	for i, r := range results {
		if !r.OK {
			t.Fatalf("result %d failed: %+v", i, r)
		}
	}
}

func TestPostTextLongSingleChunk(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{}
	c := NewChannel(ft, nil, logx.Nop())

	results := c.PostTextLong(context.Background(), "short update")
	if len(results) != 1 || !results[0].OK {
		t.Fatalf("results = %+v", results)
	}
	if ft.posts[0].Text != "short update" {
		t.Fatalf("short message must be unmarked: %q", ft.posts[0].Text)
	}
}

func TestPostTextLongNoEarlyAbort(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{
		postErrAt:    map[int]error{0: errors.New("connection reset")},
		postStatusAt: map[int]int{1: 503},
	}
	c := NewChannel(ft, nil, logx.Nop())

	results := c.PostTextLong(context.Background(), strings.Repeat("y", 300))
	if len(ft.posts) != 3 {
		t.Fatalf("all chunks must be attempted, got %d posts", len(ft.posts))
	}
	if results[0].OK || results[0].Detail != "connection reset" {
		t.Fatalf("result 0 = %+v", results[0])
	}
	if results[1].OK || results[1].HTTPStatus != 503 {
		t.Fatalf("result 1 = %+v", results[1])
	}
	if !results[2].OK {
		t.Fatalf("result 2 = %+v", results[2])
	}
}

func TestPostImage(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{mediaRef: "media-42"}
	c := NewChannel(ft, nil, logx.Nop())

	res := c.PostImage(context.Background(), []byte("png"), "valid_y_nll")
	if !res.OK {
		t.Fatalf("PostImage failed: %+v", res)
	}
	if len(ft.uploads) != 1 || len(ft.posts) != 1 {
		t.Fatalf("uploads=%d posts=%d", len(ft.uploads), len(ft.posts))
	}
	if ft.posts[0].Media != "media-42" || ft.posts[0].Text != "valid_y_nll" {
		t.Fatalf("post = %+v", ft.posts[0])
	}
}

func TestPostImageUploadRejectedSkipsPost(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{uploadStatus: 503}
	c := NewChannel(ft, nil, logx.Nop())

	res := c.PostImage(context.Background(), []byte("png"), "")
	if res.OK || res.HTTPStatus != 503 {
		t.Fatalf("res = %+v", res)
	}
	if len(ft.posts) != 0 {
		t.Fatal("follow-up post must be skipped after a failed upload")
	}
}

func TestPostImageUploadTransportError(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{uploadErr: errors.New("timeout")}
	c := NewChannel(ft, nil, logx.Nop())

	res := c.PostImage(context.Background(), []byte("png"), "")
	if res.OK || res.Detail != "timeout" {
		t.Fatalf("res = %+v", res)
	}
	if len(ft.posts) != 0 {
		t.Fatal("follow-up post must be skipped after a transport error")
	}
}

func TestPostImagePostFailureAfterUpload(t *testing.T) {
	t.Parallel()
	ft := &fakeTransport{postStatusAt: map[int]int{0: 500}}
	c := NewChannel(ft, nil, logx.Nop())

	res := c.PostImage(context.Background(), []byte("png"), "cap")
	if res.OK || res.HTTPStatus != 500 {
		t.Fatalf("res = %+v", res)
	}
	// Upload happened; there is no rollback to assert, only that it ran.
	if len(ft.uploads) != 1 {
		t.Fatalf("uploads = %d", len(ft.uploads))
	}
}
