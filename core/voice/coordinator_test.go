package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"NoteFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAIClient struct {
	mu              sync.Mutex
	transcribeCalls int
	summarizeCalls  int
	transcript      string
	summary         string
	transcribeErr   error
	summarizeErr    error
	block           chan struct{} // 非nil时转写阻塞直到通道关闭
}

func (f *fakeAIClient) Transcribe(ctx context.Context, filePath string) (string, error) {
	f.mu.Lock()
	f.transcribeCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.transcript, f.transcribeErr
}

func (f *fakeAIClient) Summarize(ctx context.Context, transcript string) (string, error) {
	f.mu.Lock()
	f.summarizeCalls++
	f.mu.Unlock()
	return f.summary, f.summarizeErr
}

func (f *fakeAIClient) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transcribeCalls, f.summarizeCalls
}

type fakeVoiceRepo struct {
	mu      sync.Mutex
	records map[string]*model.VoiceTranscript
}

func newFakeVoiceRepo() *fakeVoiceRepo {
	return &fakeVoiceRepo{records: make(map[string]*model.VoiceTranscript)}
}

func (r *fakeVoiceRepo) SaveTranscript(ctx context.Context, vt *model.VoiceTranscript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *vt
	r.records[vt.AttachmentID] = &copied
	return nil
}

func (r *fakeVoiceRepo) GetByAttachmentID(ctx context.Context, attachmentID string) (*model.VoiceTranscript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vt, ok := r.records[attachmentID]; ok {
		copied := *vt
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeVoiceRepo) UpdateSummary(ctx context.Context, attachmentID string, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vt, ok := r.records[attachmentID]; ok {
		vt.Summary = summary
	}
	return nil
}

func (r *fakeVoiceRepo) DeleteByAttachmentID(ctx context.Context, attachmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, attachmentID)
	return nil
}

type fakeAttRepo struct {
	attachments map[string]*model.Attachment
}

func newFakeAttRepo(ids ...string) *fakeAttRepo {
	r := &fakeAttRepo{attachments: make(map[string]*model.Attachment)}
	for _, id := range ids {
		r.attachments[id] = &model.Attachment{ID: id, UserID: 1, FilePath: "/spool/audio/" + id + ".mp3", IsAudio: true}
	}
	return r
}

func (r *fakeAttRepo) CreateAttachment(att *model.Attachment) error { return nil }
func (r *fakeAttRepo) GetAttachmentByID(id string) (*model.Attachment, error) {
	return r.attachments[id], nil
}
func (r *fakeAttRepo) GetAttachmentByFilePath(filePath string) (*model.Attachment, error) {
	return nil, nil
}
func (r *fakeAttRepo) GetAttachmentsByNoteID(noteID int64) ([]*model.Attachment, error) {
	return nil, nil
}
func (r *fakeAttRepo) GetAudioAttachmentsByNoteID(noteID int64) ([]*model.Attachment, error) {
	return nil, nil
}
func (r *fakeAttRepo) UpdateDisplayName(id string, displayName string) error { return nil }
func (r *fakeAttRepo) UpdateObjectKey(id string, objectKey string) error     { return nil }
func (r *fakeAttRepo) UpdateDuration(id string, duration float64) error      { return nil }
func (r *fakeAttRepo) DeleteAttachment(id string) error                      { return nil }

type recordedNotice struct {
	Level   string
	Message string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
	events  []string
	payload interface{}
}

func (n *fakeNotifier) Notify(level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{Level: level, Message: message})
}

func (n *fakeNotifier) Emit(event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.payload = payload
}

func newTestCoordinator(enabled bool, client *fakeAIClient, ids ...string) (*Coordinator, *fakeVoiceRepo, *fakeNotifier) {
	repo := newFakeVoiceRepo()
	notifier := &fakeNotifier{}
	c := NewCoordinator(enabled, client, repo, newFakeAttRepo(ids...), notifier, notifier)
	return c, repo, notifier
}

func TestTranscribeDisabled(t *testing.T) {
	client := &fakeAIClient{}
	c, _, _ := newTestCoordinator(false, client, "att-1")

	_, err := c.Transcribe(context.Background(), "att-1")
	assert.ErrorIs(t, err, ErrAIDisabled)

	tc, _ := client.calls()
	assert.Zero(t, tc)
}

func TestSummarizeDisabled(t *testing.T) {
	client := &fakeAIClient{}
	c, _, _ := newTestCoordinator(false, client, "att-1")

	_, err := c.Summarize(context.Background(), "att-1")
	assert.ErrorIs(t, err, ErrAIDisabled)
}

func TestTranscribeSavesResult(t *testing.T) {
	client := &fakeAIClient{transcript: "会议记录内容"}
	c, repo, notifier := newTestCoordinator(true, client, "att-1")

	text, err := c.Transcribe(context.Background(), "att-1")
	require.NoError(t, err)
	assert.Equal(t, "会议记录内容", text)

	vt, err := repo.GetByAttachmentID(context.Background(), "att-1")
	require.NoError(t, err)
	require.NotNil(t, vt)
	assert.Equal(t, "会议记录内容", vt.Transcript)

	// 非静默转写完成后有提示
	assert.NotEmpty(t, notifier.notices)

	// 处理标志已复位
	status := c.Status(context.Background(), "att-1")
	assert.False(t, status.Transcribing)
	assert.True(t, status.HasTranscript)
}

func TestSummarizeReusesStoredTranscript(t *testing.T) {
	client := &fakeAIClient{summary: "- 要点一\n- 要点二"}
	c, repo, notifier := newTestCoordinator(true, client, "att-1")

	require.NoError(t, repo.SaveTranscript(context.Background(), &model.VoiceTranscript{
		AttachmentID: "att-1",
		Transcript:   "已有的转写内容",
	}))

	summary, err := c.Summarize(context.Background(), "att-1")
	require.NoError(t, err)
	assert.Equal(t, "- 要点一\n- 要点二", summary)

	// 已有转写时不再调用转写接口
	tc, sc := client.calls()
	assert.Zero(t, tc)
	assert.Equal(t, 1, sc)

	// 摘要通过编辑器总线插入
	require.Contains(t, notifier.events, "editor:insert")
	assert.Equal(t, summary, notifier.payload)

	vt, _ := repo.GetByAttachmentID(context.Background(), "att-1")
	assert.Equal(t, summary, vt.Summary)
}

func TestSummarizeRunsExactlyOneSilentTranscription(t *testing.T) {
	client := &fakeAIClient{transcript: "补转写的内容", summary: "摘要"}
	c, repo, notifier := newTestCoordinator(true, client, "att-1")

	_, err := c.Summarize(context.Background(), "att-1")
	require.NoError(t, err)

	tc, sc := client.calls()
	assert.Equal(t, 1, tc)
	assert.Equal(t, 1, sc)

	// 静默转写不发「转写完成」提示，只有摘要完成的提示
	for _, n := range notifier.notices {
		assert.NotEqual(t, "语音转写完成", n.Message)
	}

	vt, _ := repo.GetByAttachmentID(context.Background(), "att-1")
	require.NotNil(t, vt)
	assert.Equal(t, "补转写的内容", vt.Transcript)
}

func TestSummarizeAbortsOnEmptyTranscript(t *testing.T) {
	client := &fakeAIClient{transcript: "   "}
	c, _, notifier := newTestCoordinator(true, client, "att-1")

	_, err := c.Summarize(context.Background(), "att-1")
	assert.ErrorIs(t, err, ErrTranscriptEmpty)

	// 转写为空时不调用摘要接口
	tc, sc := client.calls()
	assert.Equal(t, 1, tc)
	assert.Zero(t, sc)

	// 用户收到提示且没有插入任何内容
	assert.NotEmpty(t, notifier.notices)
	assert.Empty(t, notifier.events)

	// 失败后标志仍然复位
	status := c.Status(context.Background(), "att-1")
	assert.False(t, status.Summarizing)
	assert.False(t, status.Transcribing)
}

func TestSummarizeReportsSilentTranscriptionFailure(t *testing.T) {
	client := &fakeAIClient{transcribeErr: errors.New("upstream timeout")}
	c, _, notifier := newTestCoordinator(true, client, "att-1")

	_, err := c.Summarize(context.Background(), "att-1")
	require.Error(t, err)

	// 静默转写失败后依旧要给用户一条提示
	require.NotEmpty(t, notifier.notices)
	hasError := false
	for _, n := range notifier.notices {
		if n.Level == "error" {
			hasError = true
		}
	}
	assert.True(t, hasError)

	_, sc := client.calls()
	assert.Zero(t, sc)

	status := c.Status(context.Background(), "att-1")
	assert.False(t, status.Summarizing)
}

func TestFlagsClearedOnTranscribeError(t *testing.T) {
	client := &fakeAIClient{transcribeErr: errors.New("upstream timeout")}
	c, _, _ := newTestCoordinator(true, client, "att-1")

	_, err := c.Transcribe(context.Background(), "att-1")
	require.Error(t, err)

	status := c.Status(context.Background(), "att-1")
	assert.False(t, status.Transcribing)
}

func TestFlagsIndependentPerAttachment(t *testing.T) {
	block := make(chan struct{})
	client := &fakeAIClient{transcript: "内容", block: block}
	c, _, _ := newTestCoordinator(true, client, "att-1", "att-2")

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Transcribe(context.Background(), "att-1")
	}()

	// 等转写真正开始
	assert.Eventually(t, func() bool {
		return c.Status(context.Background(), "att-1").Transcribing
	}, time.Second, 5*time.Millisecond)

	// 另一个附件的状态不受影响
	assert.False(t, c.Status(context.Background(), "att-2").Transcribing)

	close(block)
	<-done

	assert.False(t, c.Status(context.Background(), "att-1").Transcribing)
}
