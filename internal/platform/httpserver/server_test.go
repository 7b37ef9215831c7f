package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ballotengine "quorum/contexts/governance/ballot-engine"
	httptransport "quorum/contexts/governance/ballot-engine/transport/http"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestServer(t *testing.T) (*Server, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	module := ballotengine.NewInMemoryModuleWithClock(clock, nil)
	return New(module, nil, ":0"), clock
}

func doJSON(t *testing.T, server *Server, method string, path string, userID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}

func TestElectionEndToEndOverHTTP(t *testing.T) {
	server, clock := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/elections", "admin-1", `{"title":"Board Vote"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create election status %d: %s", rec.Code, rec.Body.String())
	}
	var election httptransport.ElectionResponse
	decodeInto(t, rec, &election)
	if election.AdminID != "admin-1" || election.ElectionID == "" {
		t.Fatalf("unexpected election response %+v", election)
	}
	base := "/v1/elections/" + election.ElectionID

	rec = doJSON(t, server, http.MethodPost, base+"/voters", "admin-1", `{"voter_id":"alice","weight":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register voter status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, server, http.MethodPost, base+"/proposals", "admin-1", `{"name":"Approve budget"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add proposal status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, server, http.MethodPost, base+"/start", "admin-1", `{"duration_hours":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start voting status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodPost, base+"/ballots", "alice", `{"proposal_index":0}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("cast vote status %d: %s", rec.Code, rec.Body.String())
	}
	var cast httptransport.CastVoteResponse
	decodeInto(t, rec, &cast)
	if cast.Weight != 2 {
		t.Fatalf("expected ballot weight 2, got %d", cast.Weight)
	}

	rec = doJSON(t, server, http.MethodGet, base+"/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint %d: %s", rec.Code, rec.Body.String())
	}
	var status httptransport.StatusResponse
	decodeInto(t, rec, &status)
	if status.Phase != "open" || status.TotalVotes != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	clock.now = clock.now.Add(2 * time.Hour)
	rec = doJSON(t, server, http.MethodPost, base+"/close", "admin-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("close status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, server, http.MethodGet, base+"/winner", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("winner status %d: %s", rec.Code, rec.Body.String())
	}
	var winner httptransport.WinnerResponse
	decodeInto(t, rec, &winner)
	if winner.Index != 0 || winner.Proposal.VoteCount != 2 {
		t.Fatalf("unexpected winner %+v", winner)
	}
}

func TestDomainErrorStatusMapping(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/elections", "", `{"title":"x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/elections/missing", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing election, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/elections", "admin-1", `{"title":"Board Vote"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create election status %d", rec.Code)
	}
	var election httptransport.ElectionResponse
	decodeInto(t, rec, &election)
	base := "/v1/elections/" + election.ElectionID

	rec = doJSON(t, server, http.MethodPost, base+"/voters", "mallory", `{"voter_id":"alice","weight":1}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
	var errResp httptransport.ErrorResponse
	decodeInto(t, rec, &errResp)
	if errResp.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %s", errResp.Code)
	}

	rec = doJSON(t, server, http.MethodPost, base+"/ballots", "alice", `{"proposal_index":0}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 before window opens, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, base+"/close", "admin-1", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 closing unstarted window, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, base+"/start", "admin-1", `{"duration_hours":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero duration, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, base+"/voters", "admin-1", `not-json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}
