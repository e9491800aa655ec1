package health

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	payloads []HealthUpdatePayload
}

func (b *recordingBroadcaster) Broadcast(msgType string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := payload.(HealthUpdatePayload); ok && msgType == "health:updated" {
		b.payloads = append(b.payloads, p)
	}
	return nil
}

func TestService_StatusTransitions(t *testing.T) {
	b := &recordingBroadcaster{}
	s := NewService(zerolog.Nop())
	s.SetBroadcaster(b)

	s.RegisterItem(CategoryMetadata, "tmdb", "TMDB")
	assert.True(t, s.IsHealthy(CategoryMetadata, "tmdb"))

	s.SetError(CategoryMetadata, "tmdb", "connection refused")
	item := s.GetItem(CategoryMetadata, "tmdb")
	require.NotNil(t, item)
	assert.Equal(t, StatusError, item.Status)
	assert.NotNil(t, item.Timestamp)

	// Same status and message is not re-broadcast.
	s.SetError(CategoryMetadata, "tmdb", "connection refused")

	s.ClearStatus(CategoryMetadata, "tmdb")
	assert.True(t, s.IsHealthy(CategoryMetadata, "tmdb"))

	require.Len(t, b.payloads, 3)
	assert.Equal(t, StatusOK, b.payloads[0].Status)
	assert.Equal(t, StatusError, b.payloads[1].Status)
	assert.Equal(t, StatusOK, b.payloads[2].Status)
}

func TestService_RegisterKeepsStatus(t *testing.T) {
	s := NewService(zerolog.Nop())
	s.RegisterItem(CategoryAI, "completion", "Completion API")
	s.SetWarning(CategoryAI, "completion", "breaker half-open")
	s.RegisterItem(CategoryAI, "completion", "Completion API")

	assert.Equal(t, StatusWarning, s.GetItem(CategoryAI, "completion").Status)
}

func TestService_UnregisteredItem(t *testing.T) {
	s := NewService(zerolog.Nop())
	s.SetError(CategoryBackend, "missing", "boom")
	assert.Nil(t, s.GetItem(CategoryBackend, "missing"))
	assert.False(t, s.IsHealthy(CategoryBackend, "missing"))
}

func TestService_Summary(t *testing.T) {
	s := NewService(zerolog.Nop())
	s.RegisterItem(CategoryMetadata, "tmdb", "TMDB")
	s.RegisterItem(CategoryBackend, "supabase", "Supabase")
	s.SetError(CategoryBackend, "supabase", "down")

	summary := s.GetSummary()
	assert.True(t, summary.HasIssues)
	require.Len(t, summary.Categories, 3)
	assert.Equal(t, CategorySummary{Category: CategoryMetadata, OK: 1}, summary.Categories[0])
	assert.Equal(t, CategorySummary{Category: CategoryBackend, Error: 1}, summary.Categories[2])

	all := s.GetAll()
	assert.Len(t, all.Metadata, 1)
	assert.Empty(t, all.AI)
	assert.Len(t, all.Backend, 1)
}

func TestHealthItem_MarshalJSONHidesOKDetails(t *testing.T) {
	data, err := json.Marshal(HealthItem{ID: "tmdb", Status: StatusOK, Message: "stale"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}
