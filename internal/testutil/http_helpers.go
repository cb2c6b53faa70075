package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
)

// NewRequestWithURLParams creates a request carrying chi path parameters, for
// calling a handler directly without going through the router.
//
//	req := testutil.NewRequestWithURLParams(http.MethodGet,
//	    "/api/portfolio/"+id+"/summary", map[string]string{"uuid": id})
func NewRequestWithURLParams(method, path string, params map[string]string) *http.Request {
	return withURLParams(httptest.NewRequest(method, path, nil), params)
}

// NewRequestWithQueryParams creates a request with the given query string values.
//
//	req := testutil.NewRequestWithQueryParams(http.MethodGet,
//	    "/api/portfolio/"+id+"/performance",
//	    map[string]string{"start_date": "2024-01-01", "end_date": "2024-01-31"})
func NewRequestWithQueryParams(method, path string, queryParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if len(queryParams) > 0 {
		q := req.URL.Query()
		for key, value := range queryParams {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}
	return req
}

// NewJSONRequest creates a request with a JSON body and optional chi path parameters.
func NewJSONRequest(method, path, body string, params map[string]string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return withURLParams(req, params)
}

// WithURLParam adds one chi path parameter to req, keeping any already set.
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx, ok := req.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return req
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	for key, value := range params {
		req = WithURLParam(req, key, value)
	}
	return req
}
