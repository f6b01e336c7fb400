//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"
)

// TestMatchFlow walks a full single-player match: register, start a session,
// fetch the current question and answer until the match ends. It requires a
// catalog with at least one question seeded.
func TestMatchFlow(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	email := fmt.Sprintf("player-%d@example.com", time.Now().UnixNano())
	user := registerPlayer(t, baseURL, email, "testpassword123")

	resp := postJSON(t, fmt.Sprintf("%s/v1/sessions", baseURL), user.AccessToken, map[string]interface{}{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Skipf("could not start a session (status %d); is the catalog seeded?", resp.StatusCode)
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session response: %v", err)
	}

	for i := 0; i < 100; i++ {
		var question struct {
			ID           string `json:"id"`
			Alternatives []struct {
				ID string `json:"id"`
			} `json:"alternatives"`
		}
		status := getJSON(t, fmt.Sprintf("%s/v1/sessions/%s/question", baseURL, session.ID), user.AccessToken, &question)
		if status != http.StatusOK {
			t.Fatalf("unexpected question status: %d", status)
		}
		if len(question.Alternatives) == 0 {
			t.Fatal("question has no alternatives")
		}

		answer := postJSON(t, fmt.Sprintf("%s/v1/sessions/%s/answer", baseURL, session.ID), user.AccessToken, map[string]string{
			"alternative_id": question.Alternatives[0].ID,
		})
		var result struct {
			Outcome string `json:"outcome"`
		}
		err := json.NewDecoder(answer.Body).Decode(&result)
		answer.Body.Close()
		if err != nil {
			t.Fatalf("decode answer response: %v", err)
		}
		if result.Outcome == "incorrect" || result.Outcome == "exhausted" {
			return
		}
	}
	t.Fatal("match did not terminate within 100 answers")
}
