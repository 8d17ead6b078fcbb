package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(logwriter.NewPassive(), parsed.Hostname(), port)
}

func TestAddQueryParameter(t *testing.T) {
	var request Request
	if request.query != "" {
		t.Errorf("empty query = %q, want empty string", request.query)
	}
	request.AddQueryParameter("db", "nagios records")
	request.AddQueryParameter("precision", "s")
	want := "?db=nagios+records&precision=s"
	if request.query != want {
		t.Errorf("query = %q, want %q", request.query, want)
	}
	request.ClearQuery()
	if request.query != "" {
		t.Errorf("cleared query = %q, want empty string", request.query)
	}
}

func TestAddQueryParameterWithoutValue(t *testing.T) {
	var request Request
	request.AddQueryParameter("pretty", "")
	if request.query != "?pretty" {
		t.Errorf("query = %q, want %q", request.query, "?pretty")
	}
}

func TestGet(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte("pong"))
	}))

	var request Request
	request.SetPath("ping")
	request.AddQueryParameter("verbose", "true")
	response := client.Get(&request)

	if !response.OK() {
		t.Fatalf("response not OK: %+v", response)
	}
	if gotMethod != http.MethodGet || gotPath != "/ping" || gotQuery != "verbose=true" {
		t.Errorf("request = %s %s?%s", gotMethod, gotPath, gotQuery)
	}
	if response.Body != "pong" {
		t.Errorf("body = %q, want %q", response.Body, "pong")
	}
}

func TestPostForcesPostWithoutBody(t *testing.T) {
	var gotMethod string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))

	var request Request
	request.SetPath("query")
	if response := client.Post(&request); !response.OK() {
		t.Fatalf("response not OK: %+v", response)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
}

func TestGetWithBodySendsBody(t *testing.T) {
	var gotBody string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))

	var request Request
	request.SetPath("write")
	request.SetPostData("measurement value=1 1700000000")
	if response := client.Get(&request); !response.OK() {
		t.Fatalf("response not OK: %+v", response)
	}
	if gotBody != "measurement value=1 1700000000" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestResponseClassification(t *testing.T) {
	cases := []struct {
		response Response
		want     bool
	}{
		{Response{StatusCode: 200}, true},
		{Response{StatusCode: 204}, true},
		{Response{StatusCode: 299}, true},
		{Response{StatusCode: 300}, false},
		{Response{StatusCode: 404}, false},
		{Response{StatusCode: 500}, false},
		{Response{TransportErr: io.ErrUnexpectedEOF, StatusCode: 200}, false},
	}
	for _, c := range cases {
		if got := c.response.OK(); got != c.want {
			t.Errorf("OK() for %+v = %v, want %v", c.response, got, c.want)
		}
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	parsed, _ := url.Parse(server.URL)
	port, _ := strconv.Atoi(parsed.Port())
	server.Close()

	client := NewClient(logwriter.NewPassive(), parsed.Hostname(), port)
	var request Request
	request.SetPath("ping")
	response := client.Get(&request)
	if response.TransportErr == nil {
		t.Error("expected a transport error")
	}
	if response.OK() {
		t.Error("transport failure must not classify as OK")
	}
}
