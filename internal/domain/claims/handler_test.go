package claims

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clearbill/clearbill/internal/clearinghouse"
)

func newHandlerTest(claims *mockClaimRepo, events *mockEventRepo, gw *mockGateway) (*echo.Echo, *Handler) {
	e := echo.New()
	h := NewHandler(newTestService(claims, events, gw))
	h.Register(e.Group("/api/v1"))
	return e, h
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSubmit(t *testing.T) {
	claims := newMockClaimRepo()
	e, _ := newHandlerTest(claims, &mockEventRepo{}, &mockGateway{})

	body, _ := json.Marshal(validDraft())
	rec := doRequest(e, http.MethodPost, "/api/v1/claims", string(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var claim Claim
	if err := json.Unmarshal(rec.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if claim.Status != StatusSubmitted {
		t.Errorf("status = %v, want submitted", claim.Status)
	}
	if claim.ControlNumber == "" {
		t.Error("control number missing from response")
	}
}

func TestHandlerSubmitValidationError(t *testing.T) {
	e, _ := newHandlerTest(newMockClaimRepo(), &mockEventRepo{}, &mockGateway{})

	draft := validDraft()
	draft.Insurance.PayerID = ""
	body, _ := json.Marshal(draft)
	rec := doRequest(e, http.MethodPost, "/api/v1/claims", string(body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerSubmitGatewayRejection(t *testing.T) {
	gw := &mockGateway{submitErr: &clearinghouse.GatewayRejection{StatusCode: 400, Message: "unknown payer"}}
	e, _ := newHandlerTest(newMockClaimRepo(), &mockEventRepo{}, gw)

	body, _ := json.Marshal(validDraft())
	rec := doRequest(e, http.MethodPost, "/api/v1/claims", string(body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHandlerGetNotFound(t *testing.T) {
	e, _ := newHandlerTest(newMockClaimRepo(), &mockEventRepo{}, &mockGateway{})

	rec := doRequest(e, http.MethodGet, "/api/v1/claims/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/claims/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed id", rec.Code)
	}
}

func TestHandlerCheckStatusTransient(t *testing.T) {
	claims := newMockClaimRepo()
	seeded := seedClaim(claims, StatusSubmitted)
	gw := &mockGateway{checkErr: &clearinghouse.TransientError{Op: "claims status", Err: errors.New("gateway timeout")}}
	e, _ := newHandlerTest(claims, &mockEventRepo{}, gw)

	rec := doRequest(e, http.MethodPost, "/api/v1/claims/"+seeded.ID.String()+"/status-check", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerCheckStatusMissingFields(t *testing.T) {
	claims := newMockClaimRepo()
	c := &Claim{Status: StatusSubmitted, ControlNumber: "CLMAAAA"}
	claims.seed(c)
	e, _ := newHandlerTest(claims, &mockEventRepo{}, &mockGateway{})

	rec := doRequest(e, http.MethodPost, "/api/v1/claims/"+c.ID.String()+"/status-check", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "subscriber.memberId") {
		t.Errorf("response should name missing fields: %s", rec.Body.String())
	}
}

func TestHandlerLinkRemittanceMiss(t *testing.T) {
	claims := newMockClaimRepo()
	seeded := seedClaim(claims, StatusAccepted)
	e, _ := newHandlerTest(claims, &mockEventRepo{}, &mockGateway{})

	rec := doRequest(e, http.MethodPost, "/api/v1/claims/"+seeded.ID.String()+"/remittance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on miss: %s", rec.Code, rec.Body.String())
	}

	var result LinkResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Matched {
		t.Error("expected matched=false on miss")
	}
}

func TestHandlerListEvents(t *testing.T) {
	claims := newMockClaimRepo()
	events := &mockEventRepo{}
	seeded := seedClaim(claims, StatusSubmitted)
	events.events = append(events.events, &ClaimEvent{ID: uuid.New(), ClaimID: seeded.ID, Type: EventSubmission})
	e, _ := newHandlerTest(claims, events, &mockGateway{})

	rec := doRequest(e, http.MethodGet, "/api/v1/claims/"+seeded.ID.String()+"/events?order=asc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data  []ClaimEvent `json:"data"`
		Total int          `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Errorf("total = %d, data = %d, want 1 each", resp.Total, len(resp.Data))
	}
}

func TestHandlerListClaims(t *testing.T) {
	claims := newMockClaimRepo()
	seedClaim(claims, StatusSubmitted)
	e, _ := newHandlerTest(claims, &mockEventRepo{}, &mockGateway{})

	rec := doRequest(e, http.MethodGet, "/api/v1/claims?limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Total int `json:"total"`
		Limit int `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.Limit != 10 {
		t.Errorf("total = %d, limit = %d", resp.Total, resp.Limit)
	}
}
