package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"NoteFM/config"
	"NoteFM/model"
)

// AIClient AI服务客户端接口，用于语音转写和文本摘要
type AIClient interface {
	Transcribe(ctx context.Context, filePath string) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
}

// openAIClient 基于 OpenAI 兼容接口的实现
type openAIClient struct {
	baseURL         string
	apiKey          string
	transcribeModel string
	summaryModel    string
	maxTokens       int
	temperature     float64
	httpClient      *http.Client
}

// NewOpenAIClient 创建 OpenAI 兼容的AI客户端
func NewOpenAIClient(cfg *config.Config) AIClient {
	return &openAIClient{
		baseURL:         cfg.AIAPIBaseURL,
		apiKey:          cfg.AIAPIKey,
		transcribeModel: cfg.TranscribeModel,
		summaryModel:    cfg.SummaryModel,
		maxTokens:       cfg.SummaryMaxTokens,
		temperature:     cfg.SummaryTemperature,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // 转写大文件较慢
		},
	}
}

// Transcribe 上传音频文件到转写接口，返回纯文本转写结果
func (c *openAIClient) Transcribe(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开音频文件失败: %w", err)
	}
	defer file.Close()

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("创建表单文件失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("写入表单文件失败: %w", err)
	}

	writer.WriteField("model", c.transcribeModel)
	writer.WriteField("response_format", "json")

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("关闭表单失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &b)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("转写请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("转写API返回错误状态码 %d: %s", resp.StatusCode, string(body))
	}

	var result model.OpenAITranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析转写响应失败: %w", err)
	}

	return result.Text, nil
}

// Summarize 调用聊天接口对转写文本生成摘要
func (c *openAIClient) Summarize(ctx context.Context, transcript string) (string, error) {
	reqBody := model.OpenAIChatRequest{
		Model: c.summaryModel,
		Messages: []model.OpenAIChatMessage{
			{Role: "system", Content: "你是笔记助手，请将下面的语音转写内容总结为简洁的要点列表，保留关键信息。"},
			{Role: "user", Content: transcript},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      false,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("摘要请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("摘要API返回错误状态码 %d: %s", resp.StatusCode, string(body))
	}

	var result model.OpenAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析摘要响应失败: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("摘要API未返回任何结果")
	}

	return result.Choices[0].Message.Content, nil
}
