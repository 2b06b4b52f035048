package pesapal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProvider struct {
	mu         sync.Mutex
	tokenCalls int32
	lastOrder  OrderRequest

	tokenStatus  string
	tokenExpiry  string
	statusBody   string
	cancelStatus string
	cancelMsg    string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		tokenStatus:  "200",
		cancelStatus: "200",
	}
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/Auth/RequestToken", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		expiry := f.tokenExpiry
		if expiry == "" {
			expiry = time.Now().Add(5 * time.Minute).Format(time.RFC3339)
		}
		writeProviderJSON(t, w, map[string]string{
			"token":      "test-token",
			"expiryDate": expiry,
			"status":     f.tokenStatus,
			"message":    "Request processed successfully",
		})
	})

	mux.HandleFunc("/api/Transactions/SubmitOrderRequest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var order OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.lastOrder = order
		f.mu.Unlock()
		writeProviderJSON(t, w, map[string]string{
			"order_tracking_id":  "track-abc",
			"merchant_reference": order.ID,
			"redirect_url":       "https://pay.example.com/iframe/track-abc",
			"status":             "200",
		})
	})

	mux.HandleFunc("/api/Transactions/GetTransactionStatus", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, f.statusBody)
	})

	mux.HandleFunc("/api/Transactions/CancelOrder", func(w http.ResponseWriter, r *http.Request) {
		writeProviderJSON(t, w, map[string]string{
			"status":  f.cancelStatus,
			"message": f.cancelMsg,
		})
	})

	mux.HandleFunc("/api/URLSetup/GetIpnList", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"url":"https://shop.example.com/api/payment/ipn","ipn_id":"ipn-1","ipn_status":1}]`)
	})

	return mux
}

func writeProviderJSON(t *testing.T, w http.ResponseWriter, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Fatalf("failed to encode provider response: %v", err)
	}
}

func newTestClient(t *testing.T, provider *fakeProvider) *Client {
	t.Helper()
	srv := httptest.NewServer(provider.handler(t))
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		NotificationID: "ipn-1",
	}, srv.Client(), nil)
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	client := newTestClient(t, provider)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		token, err := client.Token(ctx)
		if err != nil {
			t.Fatalf("Token() error: %v", err)
		}
		if token != "test-token" {
			t.Fatalf("Token() = %q, want test-token", token)
		}
	}

	if calls := atomic.LoadInt32(&provider.tokenCalls); calls != 1 {
		t.Fatalf("RequestToken called %d times, want 1", calls)
	}
}

func TestTokenSingleFlightUnderConcurrency(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	client := newTestClient(t, provider)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Token(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Token() error: %v", err)
	}
	if calls := atomic.LoadInt32(&provider.tokenCalls); calls != 1 {
		t.Fatalf("RequestToken called %d times under concurrency, want 1", calls)
	}
}

func TestTokenRefreshedNearExpiry(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	client := newTestClient(t, provider)
	ctx := context.Background()

	base := time.Now()
	current := base
	client.now = func() time.Time { return current }

	if _, err := client.Token(ctx); err != nil {
		t.Fatalf("Token() error: %v", err)
	}

	// Inside the expiry margin the cached token must not be reused.
	current = base.Add(5 * time.Minute)
	if _, err := client.Token(ctx); err != nil {
		t.Fatalf("Token() after expiry error: %v", err)
	}

	if calls := atomic.LoadInt32(&provider.tokenCalls); calls != 2 {
		t.Fatalf("RequestToken called %d times, want 2 after expiry", calls)
	}
}

func TestTokenRejectedCredentials(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.tokenStatus = "500"
	client := newTestClient(t, provider)

	if _, err := client.Token(context.Background()); !errors.Is(err, ErrAuth) {
		t.Fatalf("Token() error = %v, want ErrAuth", err)
	}
}

func TestSubmitOrder(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	client := newTestClient(t, provider)

	resp, err := client.SubmitOrder(context.Background(), OrderRequest{
		ID:          "order-1",
		Currency:    "TZS",
		Amount:      140000,
		Description: "Studio Builder Order - 2 items",
		CallbackURL: "https://shop.example.com/payment/callback",
		BillingAddress: BillingAddress{
			EmailAddress: "asha@example.com",
			FirstName:    "Asha",
		},
	})
	if err != nil {
		t.Fatalf("SubmitOrder() error: %v", err)
	}
	if resp.TrackingID != "track-abc" {
		t.Fatalf("tracking id = %q, want track-abc", resp.TrackingID)
	}
	if resp.RedirectURL == "" {
		t.Fatal("redirect url is empty")
	}

	provider.mu.Lock()
	sent := provider.lastOrder
	provider.mu.Unlock()
	if sent.NotificationID != "ipn-1" {
		t.Fatalf("notification id = %q, want ipn-1 filled from config", sent.NotificationID)
	}
	if sent.ID != "order-1" {
		t.Fatalf("merchant reference = %q, want order-1", sent.ID)
	}
}

func TestGetTransactionStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode PaymentStatus
		wantErr  error
	}{
		{
			name:     "completed",
			body:     `{"status_code":1,"payment_status_description":"Completed","confirmation_code":"CONF-9","status":"200"}`,
			wantCode: StatusCompleted,
		},
		{
			name:     "failed",
			body:     `{"status_code":2,"payment_status_description":"Failed","status":"200"}`,
			wantCode: StatusFailed,
		},
		{
			name:     "reversed",
			body:     `{"status_code":3,"payment_status_description":"Reversed","status":"200"}`,
			wantCode: StatusReversed,
		},
		{
			name:    "provider error",
			body:    `{"status":"500","message":"unable to find transaction"}`,
			wantErr: ErrStatusQuery,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			provider := newFakeProvider()
			provider.statusBody = tc.body
			client := newTestClient(t, provider)

			status, err := client.GetTransactionStatus(context.Background(), "track-abc")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("GetTransactionStatus() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetTransactionStatus() error: %v", err)
			}
			if status.StatusCode != tc.wantCode {
				t.Fatalf("status code = %v, want %v", status.StatusCode, tc.wantCode)
			}
		})
	}
}

func TestCancelOrderRejectedStillReturnsResult(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.cancelStatus = "500"
	provider.cancelMsg = "Unable to Cancel Order. Order is already completed"
	client := newTestClient(t, provider)

	result, err := client.CancelOrder(context.Background(), "track-abc")
	if !errors.Is(err, ErrCancel) {
		t.Fatalf("CancelOrder() error = %v, want ErrCancel", err)
	}
	if result == nil {
		t.Fatal("CancelOrder() result is nil; caller needs the provider message")
	}
	if result.Message != provider.cancelMsg {
		t.Fatalf("result message = %q, want %q", result.Message, provider.cancelMsg)
	}
}

func TestGetIPNList(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	client := newTestClient(t, provider)

	list, err := client.GetIPNList(context.Background())
	if err != nil {
		t.Fatalf("GetIPNList() error: %v", err)
	}
	if len(list) != 1 || list[0].IPNID != "ipn-1" {
		t.Fatalf("GetIPNList() = %+v, want one entry with ipn-1", list)
	}
}

func TestPaymentStatusString(t *testing.T) {
	t.Parallel()

	want := map[PaymentStatus]string{
		StatusInvalid:    "INVALID",
		StatusCompleted:  "COMPLETED",
		StatusFailed:     "FAILED",
		StatusReversed:   "REVERSED",
		PaymentStatus(9): "UNKNOWN",
	}
	for status, label := range want {
		if got := status.String(); got != label {
			t.Errorf("PaymentStatus(%d).String() = %q, want %q", int(status), got, label)
		}
	}
}
