package consolidation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStrategyAdoptsRemoteState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "home", req.Variant)
		assert.Equal(t, models.RoleParent, req.Role)

		merged := req.Profile
		merged.Label = "Curious Storyteller"
		merged.ConfidencePercentage = 42
		merged.TotalAssessments = 1

		json.NewEncoder(w).Encode(remoteResponse{
			Profile: merged,
			Result:  Result{EffectiveBoost: 42},
		})
	}))
	defer server.Close()

	strategy := NewHTTPStrategy(server.URL, time.Second)
	profile := &models.Profile{ProfileID: "p-1", SubjectName: "Ada"}
	scored, contrib := submission(map[string]float64{"language": 3}, 1.0, 30)

	result, err := strategy.Consolidate(context.Background(), profile, scored, contrib, meta(models.RoleParent))
	require.NoError(t, err)

	assert.Equal(t, 42, result.EffectiveBoost)
	assert.Equal(t, 42, profile.ConfidencePercentage)
	assert.Equal(t, "Curious Storyteller", profile.Label)
	// Identity fields stay local
	assert.Equal(t, "p-1", profile.ProfileID)
	assert.Equal(t, "Ada", profile.SubjectName)
}

func TestHTTPStrategyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	strategy := NewHTTPStrategy(server.URL, time.Second)
	profile := &models.Profile{ProfileID: "p-1"}
	scored, contrib := submission(map[string]float64{"language": 3}, 1.0, 30)

	_, err := strategy.Consolidate(context.Background(), profile, scored, contrib, meta(models.RoleParent))
	assert.Error(t, err)
}

func TestHTTPStrategyUnreachable(t *testing.T) {
	strategy := NewHTTPStrategy("http://127.0.0.1:1/consolidate", 200*time.Millisecond)
	profile := &models.Profile{ProfileID: "p-1"}
	scored, contrib := submission(map[string]float64{"language": 3}, 1.0, 30)

	_, err := strategy.Consolidate(context.Background(), profile, scored, contrib, meta(models.RoleParent))
	assert.Error(t, err)
}
