// Package tsclient is the InfluxDB-side of the ingest pipeline: it probes
// backend health, idempotently provisions the target database, and posts
// translated lines one at a time, diverting rejected source lines to the
// upload-error log.
package tsclient

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/httpclient"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/lineprotocol"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/metrics"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/nagios"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/units"
)

// URL paths
const (
	commandPing  = "ping"
	commandQuery = "query"
	commandWrite = "write"
)

// query parameters
const (
	databaseParameter = "db"
	queryParameter    = "q"
)

// log messages
const (
	checkHealth      = "Checking Influx connectivity"
	listingDatabases = "Listing Influx databases"
	databaseExists   = "Influx database exists"
	creatingDatabase = "Creating Influx database"
	writing          = "Writing to Influx"
)

// writeLimit bounds single-line POSTs so a large spool backlog cannot flood
// the backend; the burst matches one collector refill block.
var writeLimit = rate.Limit(2048)

// Client drives one backend for the duration of one ingest iteration. Not
// safe for concurrent use; the controller owns it.
type Client struct {
	log          logwriter.Writer
	databaseName string
	http         *httpclient.Client
	translator   *lineprotocol.Translator
	limiter      *rate.Limiter
}

// NewClient returns a Client for the backend at hostName:port, writing into
// databaseName with measurementName lines.
func NewClient(log logwriter.Writer, hostName string, port int, databaseName, measurementName string, unitMap units.Map) *Client {
	return &Client{
		log:          log,
		databaseName: databaseName,
		http:         httpclient.NewClient(log, hostName, port),
		translator:   lineprotocol.NewTranslator(log, measurementName, unitMap),
		limiter:      rate.NewLimiter(writeLimit, 1024),
	}
}

// logResponse logs the response under activity and reports whether it
// failed.
func (c *Client) logResponse(response httpclient.Response, activity string) bool {
	if response.TransportErr != nil {
		logwriter.ErrorAnnotated(c.log, activity, "transport", response.TransportErr)
		return true
	}
	if !response.OK() {
		logwriter.ErrorAnnotated(c.log, activity, strconv.Itoa(response.StatusCode), nil)
		return true
	}
	logwriter.DebugAnnotated(c.log, activity, strconv.Itoa(response.StatusCode), nil)
	return false
}

func (c *Client) queryRequest(query string) *httpclient.Request {
	request := &httpclient.Request{}
	request.SetPath(commandQuery)
	request.AddQueryParameter(queryParameter, query)
	return request
}

// TestConnection probes GET /ping and reports whether the backend answered
// with a success status.
func (c *Client) TestConnection() bool {
	request := &httpclient.Request{}
	request.SetPath(commandPing)
	return !c.logResponse(c.http.Get(request), checkHealth)
}

// CreateDatabaseIfNotExists lists the backend's databases and creates the
// target database only when absent. Idempotent: a present database issues
// one SHOW DATABASES and no CREATE.
func (c *Client) CreateDatabaseIfNotExists() bool {
	response := c.http.Get(c.queryRequest("SHOW DATABASES"))
	if c.logResponse(response, listingDatabases) {
		return false
	}
	if strings.Contains(response.Body, `["`+c.databaseName+`"]`) {
		logwriter.Debug(c.log, databaseExists)
		return true
	}
	created := c.http.Post(c.queryRequest(`CREATE DATABASE "` + c.databaseName + `"`))
	return !c.logResponse(created, creatingDatabase)
}

// TransmitNagiosLine posts each translated line of record. On the first
// failing line the unmodified source line goes to the upload-error queue
// and the record's remaining lines are skipped. Reports whether every line
// was accepted.
func (c *Client) TransmitNagiosLine(record *nagios.PerformanceRecord, sourceLine string) bool {
	for _, line := range c.translator.TranslateRecord(record) {
		c.limiter.Wait(context.Background())
		request := &httpclient.Request{}
		request.SetPath(commandWrite)
		request.AddQueryParameter(databaseParameter, c.databaseName)
		request.AddQueryParameter("precision", "s")
		request.SetPostData(line)
		if c.logResponse(c.http.Post(request), writing) {
			c.log.WriteUploadError(sourceLine)
			metrics.LinesRejected.Inc()
			return false
		}
		metrics.LinesTransmitted.Inc()
	}
	return true
}
