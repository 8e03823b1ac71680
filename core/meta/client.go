package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"NoteFM/model"
)

// Client 音乐元数据服务客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建新的元数据服务客户端
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// SetTimeout 设置请求超时时间
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// Lookup 按解析后的路径查询曲目信息（封面、艺术家、专辑、时长）
// 对象存储中的附件传预签名链接，本地附件传文件路径。
func (c *Client) Lookup(ctx context.Context, path string) (*model.TrackMeta, error) {
	reqURL := fmt.Sprintf("%s/track/info?path=%s", c.baseURL, url.QueryEscape(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API返回错误状态码: %d", resp.StatusCode)
	}

	var result struct {
		Code int `json:"code"`
		Data struct {
			Title    string  `json:"title"`
			Artist   string  `json:"artist"`
			Album    string  `json:"album"`
			CoverURL string  `json:"coverUrl"`
			Duration float64 `json:"duration"` // 毫秒
		} `json:"data"`
		Msg string `json:"msg,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if result.Code != 200 {
		return nil, fmt.Errorf("API返回业务错误: code=%d msg=%s", result.Code, result.Msg)
	}

	return &model.TrackMeta{
		Title:    result.Data.Title,
		Artist:   result.Data.Artist,
		Album:    result.Data.Album,
		CoverURL: result.Data.CoverURL,
		Duration: result.Data.Duration / 1000,
		Source:   "remote",
	}, nil
}
