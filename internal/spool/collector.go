// Package spool presents the monitoring product's spool directory as a lazy
// sequence of sanitised lines. Files are streamed in bounded chunks with
// partial-line rollback, and deleted only once fully consumed.
package spool

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/metrics"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/strutil"
)

const (
	// MaxBlockSize is the number of lines a single refill attempt targets.
	MaxBlockSize = 1024
	// MaxFileLineLength bounds one spool line; real Nagios performance-data
	// lines top out far below this.
	MaxFileLineLength = 4096
	// MaxReadChunk bounds the bytes read from disk per refill.
	MaxReadChunk = MaxFileLineLength * MaxBlockSize
)

// collector logging constants
const (
	addedPerfFileForProcessing = "Added file for perfdata processing"
	deleteFile                 = "Delete file"
	fileRead                   = "Read file"
	fileSeek                   = "Move to position in file"
	spoolDirectory             = "Locating spool directory"
	extractedLine              = "Extracted cleaned line"
	gettingNextBlock           = "Getting next data block from disk"
	noMoreLines                = "No more lines to process"
	openFile                   = "Open file"
	skippedEmpty               = "Skipped empty file"
	indecipherable             = "No line boundary found in file content"
)

// pendingFile is a spool file still being streamed: its path, its size at
// enumeration time, and the current read offset.
type pendingFile struct {
	path   string
	size   int64
	offset int64
}

// Collector drains one spool directory. It is single-threaded: constructed,
// drained, and closed on the controller goroutine within one iteration.
type Collector struct {
	log         logwriter.Writer
	pending     []pendingFile
	completed   []string
	unprocessed []string
	buffer      []byte
}

// NewCollector scans sourcePath once (no recursion), classifying each
// regular file as empty (immediately completed) or pending. Enumeration
// errors are logged and yield a collector that produces nothing.
func NewCollector(sourcePath string, log logwriter.Writer) *Collector {
	c := &Collector{log: log}
	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		logwriter.ErrorAnnotated(log, spoolDirectory, sourcePath, err)
		return c
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(sourcePath, entry.Name())
		info, err := entry.Info()
		if err != nil {
			logwriter.ErrorAnnotated(log, spoolDirectory, path, err)
			continue
		}
		if info.Size() == 0 {
			logwriter.DebugAnnotated(log, skippedEmpty, path, nil)
			c.completed = append(c.completed, path)
		} else {
			logwriter.DebugAnnotated(log, addedPerfFileForProcessing, path, nil)
			c.pending = append(c.pending, pendingFile{path: path, size: info.Size()})
		}
	}
	return c
}

// More reports whether any unprocessed line or pending file remains.
func (c *Collector) More() bool {
	return len(c.unprocessed) > 0 || len(c.pending) > 0
}

// GetNextLine returns the next sanitised line, refilling the line queue from
// disk when it runs empty, or "" once nothing remains.
func (c *Collector) GetNextLine() string {
	if len(c.unprocessed) == 0 {
		logwriter.Debug(c.log, gettingNextBlock)
		c.refill()
	}
	if len(c.unprocessed) == 0 {
		logwriter.Debug(c.log, noMoreLines)
		return ""
	}
	line := c.unprocessed[0]
	c.unprocessed = c.unprocessed[1:]
	return line
}

// refill streams at most MaxReadChunk bytes from the head of the pending
// queue into the unprocessed-line queue, stopping once MaxBlockSize lines
// are buffered. A read truncated by the chunk budget is rolled back to the
// last line boundary so the partial tail is re-read next time.
func (c *Collector) refill() {
	bytesSoFar := 0
	for len(c.pending) > 0 && len(c.unprocessed) < MaxBlockSize && bytesSoFar < MaxReadChunk {
		head := &c.pending[0]
		budget := MaxReadChunk - bytesSoFar
		toRead := head.size - head.offset
		if toRead > int64(budget) {
			toRead = int64(budget)
		}

		n, ok := c.readChunk(head, int(toRead))
		if !ok {
			c.dropHead()
			continue
		}
		bytesSoFar += n

		usable := c.buffer[:n]
		advance := int64(n)
		if n == budget {
			// the read was cut off by the chunk budget, not the file; roll
			// back to the last line boundary so the partial tail is re-read
			k := trailingPartial(usable)
			if k == n {
				logwriter.WarnAnnotated(c.log, indecipherable, head.path, nil)
				c.dropHead()
				continue
			}
			usable = usable[:n-k]
			advance -= int64(k)
		}

		c.extractLines(usable)

		head.offset += advance
		if head.offset >= head.size {
			c.completed = append(c.completed, head.path)
			c.pending = c.pending[1:]
		}
	}
}

// trailingPartial returns the number of bytes after the last newline in buf,
// or len(buf) when buf contains no newline at all.
func trailingPartial(buf []byte) int {
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] == '\n' {
			return len(buf) - 1 - i
		}
	}
	return len(buf)
}

// readChunk opens head's file, seeks to its offset, and reads up to toRead
// bytes into the reusable buffer. Any failure is logged once and reported
// via ok=false; the caller drops the file from pending.
func (c *Collector) readChunk(head *pendingFile, toRead int) (n int, ok bool) {
	if cap(c.buffer) < toRead {
		c.buffer = make([]byte, toRead)
	}
	c.buffer = c.buffer[:cap(c.buffer)]

	f, err := os.Open(head.path)
	if err != nil {
		logwriter.ErrorAnnotated(c.log, openFile, head.path, err)
		return 0, false
	}
	defer f.Close()

	if _, err := f.Seek(head.offset, io.SeekStart); err != nil {
		logwriter.ErrorAnnotated(c.log, fileSeek, head.path, err)
		return 0, false
	}
	n, err = io.ReadFull(f, c.buffer[:toRead])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		logwriter.ErrorAnnotated(c.log, fileRead, head.path, err)
		return 0, false
	}
	if n == 0 {
		logwriter.ErrorAnnotated(c.log, fileRead, head.path, io.ErrUnexpectedEOF)
		return 0, false
	}
	return n, true
}

// extractLines splits the usable view on newlines and pushes each non-empty
// cleaned line onto the unprocessed queue.
func (c *Collector) extractLines(usable []byte) {
	processor := strutil.NewDelimitedBlockProcessor(string(usable), '\n')
	for processor.More() {
		line := processor.Next()
		if line == "" {
			continue
		}
		cleaned := strutil.CleanLine(line)
		if cleaned != "" {
			logwriter.DebugAnnotated(c.log, extractedLine, cleaned, nil)
			c.unprocessed = append(c.unprocessed, cleaned)
		}
	}
}

// dropHead removes the head pending file without completing it; the file
// stays on disk for the next iteration to reconsider.
func (c *Collector) dropHead() {
	c.pending = c.pending[1:]
}

// Close unlinks every completed file. Pending files whose contents were only
// partially ingested remain on disk and are reconsidered next iteration.
func (c *Collector) Close() {
	for _, path := range c.completed {
		err := os.Remove(path)
		if err != nil {
			logwriter.ErrorAnnotated(c.log, deleteFile, path, err)
		} else {
			logwriter.DebugAnnotated(c.log, deleteFile, path, nil)
			metrics.FilesDeleted.Inc()
		}
	}
	c.completed = nil
}
