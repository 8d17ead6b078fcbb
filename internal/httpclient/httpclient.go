// Package httpclient wraps the daemon's outbound HTTP transport behind a
// small request-builder/response pair, so callers classify outcomes without
// touching transport details.
package httpclient

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
)

const defaultProtocol = "http"

// Request accumulates a path, query parameters, and an optional body before
// being handed to Client.Get or Client.Post.
type Request struct {
	path     string
	query    string
	postData string
	hasBody  bool
}

// SetPath sets the URL path component (no leading slash required).
func (r *Request) SetPath(path string) {
	r.path = path
}

// AddQueryParameter appends parameter (URL-encoding value), rendering the
// leading '?' on the first parameter and '&' between subsequent ones. An
// empty query renders as the empty string.
func (r *Request) AddQueryParameter(parameter, value string) {
	if r.query == "" {
		r.query = "?"
	} else {
		r.query += "&"
	}
	r.query += parameter
	if value != "" {
		r.query += "=" + url.QueryEscape(value)
	}
}

// ClearQuery discards all accumulated query parameters.
func (r *Request) ClearQuery() {
	r.query = ""
}

// SetPostData sets the request body.
func (r *Request) SetPostData(data string) {
	r.postData = data
	r.hasBody = true
}

// Response carries the transport outcome, the HTTP status code, and the
// response body when one was received.
type Response struct {
	TransportErr error
	StatusCode   int
	Body         string
}

// OK reports whether the transport succeeded and the status is 2xx.
func (r Response) OK() bool {
	return r.TransportErr == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues requests against one host and port. It is owned by a single
// goroutine; the controller builds a fresh one per iteration.
type Client struct {
	log      logwriter.Writer
	baseURL  string
	internal *http.Client
}

// NewClient returns a Client for hostName:port over plain HTTP.
func NewClient(log logwriter.Writer, hostName string, port int) *Client {
	return &Client{
		log:      log,
		baseURL:  defaultProtocol + "://" + hostName + ":" + strconv.Itoa(port),
		internal: &http.Client{Timeout: 30 * time.Second},
	}
}

// Get sends the request as a GET unless a body was set, in which case it is
// sent as a POST carrying that body.
func (c *Client) Get(request *Request) Response {
	return c.send(request, false)
}

// Post sends the request as a POST even when no body was set.
func (c *Client) Post(request *Request) Response {
	return c.send(request, true)
}

func (c *Client) send(request *Request, forcePost bool) Response {
	method := http.MethodGet
	if forcePost || request.hasBody {
		method = http.MethodPost
	}
	fullURL := c.baseURL + "/" + request.path + request.query

	var body io.Reader
	if request.hasBody {
		body = strings.NewReader(request.postData)
	}
	req, err := http.NewRequest(method, fullURL, body)
	if err != nil {
		return Response{TransportErr: err}
	}

	resp, err := c.internal.Do(req)
	if err != nil {
		return Response{TransportErr: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{TransportErr: err, StatusCode: resp.StatusCode}
	}
	return Response{StatusCode: resp.StatusCode, Body: string(responseBody)}
}
