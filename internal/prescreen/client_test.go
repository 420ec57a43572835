package prescreen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/kestrelview/kestrel/internal/testutil"
)

func TestScreenVCR(t *testing.T) {
	r, cleanup := testutil.NewVCRRecorder(t, "prescreen")
	defer cleanup()

	client := NewClient("http://prescreen.internal/v1/prescreen",
		WithHTTPClient(testutil.VCRHTTPClient(r)))
	ctx := context.Background()

	// Interactions replay in cassette order.
	blocked, err := client.Screen(ctx, "My SSN is 123-45-6789, can you check my account?")
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if !blocked.Blocked {
		t.Error("expected the PII message to be blocked")
	}
	if !reflect.DeepEqual(blocked.DetectedCategories, []string{"ssn"}) {
		t.Errorf("categories = %v", blocked.DetectedCategories)
	}

	clean, err := client.Screen(ctx, "What broke in the payments rollout?")
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if clean.Blocked {
		t.Errorf("clean message blocked: %+v", clean)
	}
}

func TestScreenNonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "screening backend down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	if _, err := client.Screen(context.Background(), "hello"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	} else if !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v", err)
	}
}

func TestScreenTransportFailureIsError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1/v1/prescreen")
	if _, err := client.Screen(context.Background(), "hello"); err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestScreenSendsJSONBody(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"blocked":false}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	if _, err := client.Screen(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
}
