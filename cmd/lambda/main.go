package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/trading-academy/internal/app/bootstrap"
	appconfig "github.com/wolfman30/trading-academy/internal/config"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	app, err := bootstrap.Build(context.Background(), cfg, logger)
	if err != nil {
		panic(err)
	}
	defer app.Close()

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, app.Handler, evt)
	})
}

// handle replays an API Gateway HTTP API event through the router.
func handle(ctx context.Context, h http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	if path == "" {
		path = "/"
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	target := path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid request"}, nil
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if len(evt.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(evt.Cookies, "; "))
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip + ":0"
	}
	if host := strings.TrimSpace(evt.RequestContext.DomainName); host != "" {
		req.Host = host
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rec.Code,
		Headers:    map[string]string{},
	}
	for k, values := range rec.Header() {
		if strings.EqualFold(k, "Set-Cookie") {
			out.Cookies = append(out.Cookies, values...)
			continue
		}
		out.Headers[k] = strings.Join(values, ", ")
	}
	respBody := rec.Body.Bytes()
	if utf8.Valid(respBody) {
		out.Body = string(respBody)
	} else {
		out.Body = base64.StdEncoding.EncodeToString(respBody)
		out.IsBase64Encoded = true
	}
	return out, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
