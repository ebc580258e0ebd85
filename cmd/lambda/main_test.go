package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func apiEvent(method, path string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: "198.51.100.4",
			},
		},
	}
}

func TestHandleForwardsRequest(t *testing.T) {
	var gotMethod, gotQuery, gotBody, gotRemote, gotType string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotRemote = r.RemoteAddr
		gotType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	evt := apiEvent(http.MethodPost, "/contact")
	evt.RawQueryString = "src=footer"
	evt.Headers = map[string]string{"content-type": "application/json"}
	evt.Body = base64.StdEncoding.EncodeToString([]byte(`{"name":"A"}`))
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), h, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if gotMethod != http.MethodPost || gotQuery != "src=footer" || gotBody != `{"name":"A"}` {
		t.Fatalf("unexpected forwarded request: %s %s %s", gotMethod, gotQuery, gotBody)
	}
	if gotRemote != "198.51.100.4:0" {
		t.Fatalf("expected source ip as remote addr, got %s", gotRemote)
	}
	if gotType != "application/json" {
		t.Fatalf("expected content type header, got %q", gotType)
	}
	if resp.Body != `{"ok":true}` || resp.Headers["Content-Type"] != "application/json" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Cookies) != 1 {
		t.Fatalf("expected cookie to move to Cookies, got %v", resp.Cookies)
	}
}

func TestHandleRejectsInvalidBase64(t *testing.T) {
	evt := apiEvent(http.MethodPost, "/leads/register")
	evt.Body = "!!!"
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), http.NotFoundHandler(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHandleEncodesBinaryResponses(t *testing.T) {
	pdf := []byte{0x25, 0x50, 0x44, 0x46, 0xff, 0xfe}
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pdf)
	})

	resp, err := handle(context.Background(), h, apiEvent(http.MethodGet, "/guide.pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsBase64Encoded {
		t.Fatalf("expected base64 body for binary output")
	}
	decoded, _ := base64.StdEncoding.DecodeString(resp.Body)
	if string(decoded) != string(pdf) {
		t.Fatalf("body mismatch")
	}
}
