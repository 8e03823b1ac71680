package meta

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"NoteFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetadataServer(t *testing.T, lastPath *string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*lastPath = r.URL.Query().Get("path")
		fmt.Fprint(w, `{"code":200,"data":{"title":"晴天","artist":"周杰伦","album":"叶惠美","coverUrl":"http://img/cover.jpg","duration":269000}}`)
	}))
}

func TestLookupKeyedByResolvedPath(t *testing.T) {
	var lastPath string
	srv := newMetadataServer(t, &lastPath)
	defer srv.Close()

	c := NewClient(srv.URL)
	meta, err := c.Lookup(context.Background(), "/spool/audio/att-1.mp3")
	require.NoError(t, err)

	assert.Equal(t, "/spool/audio/att-1.mp3", lastPath)
	assert.Equal(t, "晴天", meta.Title)
	assert.Equal(t, "周杰伦", meta.Artist)
	assert.Equal(t, "叶惠美", meta.Album)
	assert.Equal(t, "http://img/cover.jpg", meta.CoverURL)
	assert.InDelta(t, 269, meta.Duration, 0.001) // 毫秒转秒
	assert.Equal(t, "remote", meta.Source)
}

func TestLookupBusinessError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":404,"msg":"not found"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Lookup(context.Background(), "/spool/audio/att-1.mp3")
	assert.Error(t, err)
}

func TestFetcherLooksUpByAttachmentFilePath(t *testing.T) {
	var lastPath string
	srv := newMetadataServer(t, &lastPath)
	defer srv.Close()

	f := NewFetcher(NewClient(srv.URL))
	att := &model.Attachment{
		ID:          "att-1",
		DisplayName: "03.晴天.mp3",
		FilePath:    "/spool/audio/att-1.mp3",
		IsAudio:     true,
	}

	meta := f.EnsureMeta(context.Background(), att)
	require.NotNil(t, meta)

	// 本地附件用文件路径作为查询键，不用显示名解析出的标题
	assert.Equal(t, "/spool/audio/att-1.mp3", lastPath)
	assert.Equal(t, "remote", meta.Source)
}
