package clearinghouse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(srv.URL, "test-key", time.Second, zerolog.Nop())
	return c, srv
}

func TestSubmit_SendsIdempotencyKey(t *testing.T) {
	var gotKey string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		w.Write([]byte(`{"controlNumber":"CLM123","ack":"accepted"}`))
	})
	defer srv.Close()

	ack, err := c.Submit(context.Background(), map[string]string{"a": "b"}, "CLM123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "CLM123" {
		t.Errorf("expected idempotency key CLM123, got %q", gotKey)
	}
	if ack.ControlNumber != "CLM123" || ack.Ack != "accepted" {
		t.Errorf("unexpected ack: %+v", ack)
	}
}

func TestSubmit_4xxIsGatewayRejection(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid subscriber"}`))
	})
	defer srv.Close()

	_, err := c.Submit(context.Background(), struct{}{}, "CLM1")
	if !IsRejection(err) {
		t.Fatalf("expected GatewayRejection, got %v", err)
	}
	gr := err.(*GatewayRejection)
	if gr.StatusCode != http.StatusUnprocessableEntity || gr.Message != "invalid subscriber" {
		t.Errorf("unexpected rejection: %+v", gr)
	}
	if IsTransient(err) {
		t.Error("rejection must not be transient")
	}
}

func TestCheckStatus_5xxIsTransient(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := c.CheckStatus(context.Background(), &StatusQuery{})
	if !IsTransient(err) {
		t.Errorf("expected TransientError, got %v", err)
	}
}

func TestCheckStatus_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	c := NewClient(srv.URL, "", time.Second, zerolog.Nop())

	_, err := c.CheckStatus(context.Background(), &StatusQuery{})
	if !IsTransient(err) {
		t.Errorf("expected TransientError, got %v", err)
	}
}

func TestListTransactions_DecodesX12Metadata(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Write([]byte(`[
			{"transactionId":"A","operation":"X12-277CA:X12->GuideJSON","x12":{"metadata":{"transaction":{"controlNumber":"CLM9"}}}},
			{"transactionId":"B","operation":"GuideJSON->X12"}
		]`))
	})
	defer srv.Close()

	txs, err := c.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].ControlNumber() != "CLM9" {
		t.Errorf("expected control number CLM9, got %q", txs[0].ControlNumber())
	}
	if !txs[0].IsInbound() || txs[1].IsInbound() {
		t.Error("inbound detection failed")
	}
}

func TestGetOutput_DecodesRemittance(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"claimPaymentInformation":[{"claimPaymentAmount":"120.00"}]}`))
	})
	defer srv.Close()

	resp, err := c.GetOutput(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.HasRemittance() {
		t.Fatal("expected remittance payload")
	}
	if got := *resp.ClaimPaymentInformation[0].ClaimPaymentAmount; got != "120.00" {
		t.Errorf("expected payment amount 120.00, got %q", got)
	}
}
