package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/store"
)

type recordingWriter struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (w *recordingWriter) WriteObject(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.objects[bucket+"/"+object] = data
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.objects)
}

type countingNotion struct {
	mu      sync.Mutex
	created int
}

func (n *countingNotion) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created++
	return &notionapi.Page{ID: "p"}, nil
}

func (n *countingNotion) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (n *countingNotion) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (n *countingNotion) pages() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.created
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("FINANCE_STORE_DRIVER", "memory")
	t.Setenv("FINANCE_NOTION_TOKEN", "secret_x")
	t.Setenv("FINANCE_NOTION_DATABASE_ID", "db")
	t.Setenv("FINANCE_ARCHIVE_BUCKET", "chats-bucket")
	t.Setenv("FINANCE_LLM_API_KEY", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestApp_TurnQueuesExports(t *testing.T) {
	cfg := testConfig(t)

	client := llm.CompleterFunc(func(ctx context.Context, systemPrompt string, msgs []domain.ChatMessage) (string, error) {
		if strings.HasPrefix(systemPrompt, "You are a classifier") {
			return `{"intent":"record_transaction","type":"income","amount":5000000,"category":"Gaji"}`, nil
		}
		return "Selamat, gaji sudah dicatat!", nil
	})
	writer := &recordingWriter{objects: map[string][]byte{}}
	notion := &countingNotion{}

	a, err := New(context.Background(), cfg, zerolog.Nop(),
		WithCompleter(client), WithObjectWriter(writer), WithNotionService(notion))
	require.NoError(t, err)
	require.NotNil(t, a.Notion)
	require.NoError(t, a.Start(context.Background()))

	result, err := a.Pipeline.Run(context.Background(), "user_1", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "gajian 5 juta"},
	})
	require.NoError(t, err)
	require.True(t, result.Transaction.Success)

	require.Eventually(t, func() bool {
		return notion.pages() == 1 && writer.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	for key := range writer.objects {
		assert.True(t, strings.HasPrefix(key, "chats-bucket/chats/user_1/"), key)
	}

	require.Eventually(t, func() bool {
		list, _ := a.JobStore.ListJobs(context.Background(), jobs.JobFilter{UserID: "user_1", Status: jobs.JobStatusCompleted})
		return len(list) == 2
	}, 2*time.Second, 10*time.Millisecond)

	summary, err := a.Dashboard.Summary(context.Background(), "user_1", "1m")
	require.NoError(t, err)
	assert.Equal(t, 5000000.0, summary.TotalIncome)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestApp_DegradesWithoutCredentials(t *testing.T) {
	t.Setenv("FINANCE_STORE_DRIVER", "")
	t.Setenv("FINANCE_LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("FINANCE_NOTION_TOKEN", "")
	t.Setenv("NOTION_TOKEN", "")
	t.Setenv("FINANCE_ARCHIVE_BUCKET", "")
	t.Setenv("GCS_BUCKET", "")
	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Nil(t, a.LLM)
	assert.Nil(t, a.Notion)
	assert.IsType(t, store.Unconfigured{}, a.Store)

	_, err = a.Pipeline.Run(context.Background(), "u1", []domain.ChatMessage{{Role: domain.RoleUser, Content: "hai"}})
	assert.ErrorIs(t, err, llm.ErrNotConfigured)

	_, err = a.Dashboard.Summary(context.Background(), "u1", "6m")
	assert.ErrorIs(t, err, store.ErrNotConfigured)

	assert.NoError(t, a.Shutdown(context.Background()))
}
