package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-companion-be/pkg/llm"
)

func TestChatStreamDeliversFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	ch, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	var got string
	for chunk := range ch {
		require.NoError(t, chunk.Err)
		got += chunk.Content
	}
	assert.Equal(t, "Hello", got)
}

func TestChatStreamSurfacesTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"par"},"done":false}`)
		// Connection ends without a done marker.
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	ch, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	var finalErr error
	for chunk := range ch {
		finalErr = chunk.Err
	}
	require.Error(t, finalErr)
	assert.Contains(t, finalErr.Error(), "ended before completion")
}

func TestChatStreamAbandonedConsumerDoesNotStrandForwarder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 16; i++ {
			fmt.Fprintln(w, `{"message":{"content":"x"},"done":false}`)
		}
		// Connection ends without a done marker.
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewOllamaProvider(srv.URL, "llama3")
	ch, err := p.ChatStream(ctx, []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	// Nobody reads: 16 fragments fill the buffer and the terminal error has
	// nowhere to go until the request is cancelled.
	require.Eventually(t, func() bool { return len(ch) == 16 }, time.Second, 5*time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	// The goroutine dropped the terminal error and closed the channel
	// instead of waiting for a reader that will never come.
	var sawErr bool
	for chunk := range ch {
		if chunk.Err != nil {
			sawErr = true
		}
	}
	assert.False(t, sawErr)
}
