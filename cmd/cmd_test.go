package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Yates-Labs/permitdesk/internal/selection"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command against baseURL and returns stdout. Flags are
// restored to their defaults afterwards so runs do not leak into each other.
func execute(t *testing.T, baseURL, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PERMITDESK_BASE_URL", baseURL)
	t.Setenv("PERMITDESK_CATALOG", "")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	done := make(chan error, 1)
	go func() {
		done <- rootCmd.ExecuteContext(context.Background())
	}()

	select {
	case err := <-done:
		return out.String(), err
	case <-time.After(10 * time.Second):
		t.Fatalf("%v did not finish", args)
		return "", nil
	}
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHealthCommand(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "is healthy")
}

func TestHealthCommandUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	out, err := execute(t, srv.URL, "", "health")
	require.Error(t, err)
	assert.Contains(t, out, "✗")
}

func TestEvaluateCommand(t *testing.T) {
	var gotExpected []string
	r := chi.NewRouter()
	r.Post("/api/rag/evaluate", func(w http.ResponseWriter, req *http.Request) {
		gotExpected = req.URL.Query()["expected_documents"]
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"precision":           0.5,
			"recall":              1.0,
			"f1_score":            0.6667,
			"expected_documents":  []string{"doc1"},
			"retrieved_documents": []string{"doc1", "doc2"},
			"matched_count":       1,
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "evaluate", "주차장 설치 기준", "--expected", "doc1, ")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, gotExpected)
	assert.Contains(t, out, "평가 결과")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "1 / 1")
}

func TestConfigCommandRejectsOutOfRange(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}))
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "config", "similarity", "--threshold", "1.5")
	require.Error(t, err)
	assert.Contains(t, out, "similarity_threshold must be <= 1")
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestConfigChunkCommand(t *testing.T) {
	var body map[string]interface{}
	r := chi.NewRouter()
	r.Put("/api/rag/chunk-config", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewDecoder(req.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "config", "chunk", "--size", "800", "--overlap", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.EqualValues(t, 800, body["chunk_size"])
	assert.EqualValues(t, 100, body["chunk_overlap"])
}

func TestDocumentsDeleteDeclined(t *testing.T) {
	var deletes int32
	r := chi.NewRouter()
	r.Delete("/api/documents/{id}", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&deletes, 1)
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := execute(t, srv.URL, "n\n", "documents", "delete", "doc_1")
	require.NoError(t, err)
	assert.Contains(t, out, "정말 삭제하시겠습니까?")
	assert.Zero(t, atomic.LoadInt32(&deletes))
}

func TestDocumentsList(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/documents/list", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": "doc_1", "filename": "주차장법.pdf", "chunk_count": 12, "created_at": "2024-03-01T09:30:00"},
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "documents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "주차장법.pdf")
	assert.Contains(t, out, "2024-03-01 09:30")
}

func TestAskCommand(t *testing.T) {
	var got struct {
		Query  string  `json:"query"`
		Folder *string `json:"folder"`
		Region *string `json:"region"`
	}
	r := chi.NewRouter()
	r.Post("/api/rag/query", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewDecoder(req.Body).Decode(&got)
		score := 0.873
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"answer": "주차대수는 시설면적 기준으로 산정합니다.",
			"chunks": []map[string]interface{}{
				{"content": "부설주차장 설치기준", "score": score, "metadata": map[string]string{"filename": "주차장법.pdf"}},
			},
			"sources": []string{"주차장법.pdf"},
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "ask", "주차장 설치 기준")
	require.NoError(t, err)
	assert.Equal(t, "주차장 설치 기준", got.Query)
	require.NotNil(t, got.Folder)
	assert.Nil(t, got.Region)
	assert.Contains(t, out, "주차대수는 시설면적 기준으로 산정합니다.")
	assert.Contains(t, out, "87.3%")
}

func TestAskCommandHardFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/rag/query", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "vector store unavailable"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "ask", "건폐율")
	require.ErrorIs(t, err, errAskFailed)
	assert.Contains(t, out, "vector store unavailable")
}

func TestAskCommandRejectsOutOfRangeOverrides(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, map[string]string{"answer": "ok"})
	}))
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "ask", "건폐율", "--top-k", "0", "--threshold", "5")
	require.Error(t, err)
	assert.Contains(t, out, "top_k must be >= 1")
	assert.Contains(t, out, "similarity_threshold must be <= 1")
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFlagsDoNotCarryOverBetweenRuns(t *testing.T) {
	var deletes int32
	r := chi.NewRouter()
	r.Delete("/api/documents/{id}", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&deletes, 1)
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, err := execute(t, srv.URL, "", "documents", "delete", "doc_1", "--yes")
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&deletes))

	out, err := execute(t, srv.URL, "n\n", "documents", "delete", "doc_1")
	require.NoError(t, err)
	assert.Contains(t, out, "정말 삭제하시겠습니까?")
	assert.EqualValues(t, 1, atomic.LoadInt32(&deletes), "--yes from the previous run must not apply")
}

type queryBody struct {
	Query  string  `json:"query"`
	Folder *string `json:"folder"`
	Region *string `json:"region"`
}

// queryLog is a fake /api/rag/query that records what it was asked.
type queryLog struct {
	mu       sync.Mutex
	requests []queryBody
}

func (q *queryLog) handler(status int, response map[string]interface{}) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/rag/query", func(w http.ResponseWriter, req *http.Request) {
		var body queryBody
		_ = json.NewDecoder(req.Body).Decode(&body)
		q.mu.Lock()
		q.requests = append(q.requests, body)
		q.mu.Unlock()
		writeJSON(w, status, response)
	})
	return r
}

func (q *queryLog) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

func answered(answer string) map[string]interface{} {
	return map[string]interface{}{
		"answer": answer,
		"chunks": []map[string]interface{}{
			{"content": "부설주차장 설치기준", "score": 0.5, "metadata": map[string]string{"filename": "주차장법.pdf"}},
		},
	}
}

func TestChatFilterChangeStartsNewConversation(t *testing.T) {
	var q queryLog
	srv := httptest.NewServer(q.handler(http.StatusOK, answered("답변입니다.")))
	defer srv.Close()

	exportPath := filepath.Join(t.TempDir(), "chat.json")
	stdin := "첫 질문\n/category 2\n/region 1\n둘째 질문\n/export " + exportPath + "\n/exit\n"

	out, err := execute(t, srv.URL, stdin, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "새 대화를 시작합니다.")

	require.Equal(t, 2, q.count())
	first, second := q.requests[0], q.requests[1]
	assert.Equal(t, "신축_일반개인_다중주택", *first.Folder)
	assert.Nil(t, first.Region)
	assert.Equal(t, "신축_일반개인_단독주택", *second.Folder)
	require.NotNil(t, second.Region)
	assert.Equal(t, "전주시", *second.Region)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var export struct {
		Folder     string `json:"folder"`
		EntryCount int    `json:"entry_count"`
		Entries    []struct {
			Content string `json:"content"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "신축_일반개인_단독주택", export.Folder)
	require.Equal(t, 2, export.EntryCount, "only the exchange after the filter change remains")
	assert.Equal(t, "둘째 질문", export.Entries[0].Content)
}

func TestChatHardFailureBannerAndDismiss(t *testing.T) {
	var q queryLog
	srv := httptest.NewServer(q.handler(http.StatusBadGateway, map[string]interface{}{"detail": "upstream timeout"}))
	defer srv.Close()

	out, err := execute(t, srv.URL, "질문\n/dismiss\n/exit\n", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "죄송합니다. 오류가 발생했습니다: upstream timeout")
	banner := strings.LastIndex(out, "upstream timeout")
	dismissed := strings.Index(out, "오류 메시지를 닫았습니다.")
	require.NotEqual(t, -1, dismissed)
	assert.Greater(t, dismissed, banner)
}

func TestChatQuickQuestion(t *testing.T) {
	var q queryLog
	srv := httptest.NewServer(q.handler(http.StatusOK, answered("주차장법 시행령 별표1")))
	defer srv.Close()

	out, err := execute(t, srv.URL, "/quick 3\n/exit\n", "chat")
	require.NoError(t, err)

	require.Equal(t, 1, q.count())
	assert.Equal(t, selection.DefaultCatalog().QuickQuestions[2], q.requests[0].Query)
	assert.Contains(t, out, "주차장법 시행령 별표1")
	assert.Contains(t, out, "참고 문서 (1개)")
}

func TestChatDropdownChooseCloses(t *testing.T) {
	var q queryLog
	srv := httptest.NewServer(q.handler(http.StatusOK, answered("ok")))
	defer srv.Close()

	out, err := execute(t, srv.URL, "/category\n2\n질문\n/exit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "▸")

	// "질문" went out as a question, so the dropdown had closed after "2".
	require.Equal(t, 1, q.count())
	assert.Equal(t, "질문", q.requests[0].Query)
	assert.Equal(t, "신축_일반개인_단독주택", *q.requests[0].Folder)
}

func TestChatOutsideInteractionClosesDropdown(t *testing.T) {
	var q queryLog
	srv := httptest.NewServer(q.handler(http.StatusOK, answered("ok")))
	defer srv.Close()

	out, err := execute(t, srv.URL, "/region\n/help\n2\n/exit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")

	// With the dropdown closed by /help, "2" is a question, not a region choice.
	require.Equal(t, 1, q.count())
	assert.Equal(t, "2", q.requests[0].Query)
	assert.Nil(t, q.requests[0].Region)
}
