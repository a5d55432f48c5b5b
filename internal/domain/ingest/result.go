package ingest

// FileStatus is the processing outcome of a single uploaded file.
type FileStatus string

// File status values.
const (
	StatusOK    FileStatus = "ok"
	StatusError FileStatus = "error"
)

// Result is the outcome of ingesting one file in a batch upload.
type Result struct {
	filename string
	status   FileStatus
	chunks   int
	err      error
}

// NewOK creates a successful ingestion result.
func NewOK(filename string, chunks int) Result {
	return Result{filename: filename, status: StatusOK, chunks: chunks}
}

// NewError creates a failed ingestion result.
func NewError(filename string, err error) Result {
	return Result{filename: filename, status: StatusError, err: err}
}

// Filename returns the uploaded file name.
func (r Result) Filename() string { return r.filename }

// Status returns the processing outcome.
func (r Result) Status() FileStatus { return r.status }

// Chunks returns the number of chunks created from the file.
func (r Result) Chunks() int { return r.chunks }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates per-file results of one batch upload.
type Summary struct {
	Results []Result
}

// Processed counts files that ingested successfully.
func (s Summary) Processed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status() == StatusOK {
			n++
		}
	}
	return n
}

// Failed counts files that did not ingest.
func (s Summary) Failed() int { return len(s.Results) - s.Processed() }

// ChunksCreated totals chunks created across all successful files.
func (s Summary) ChunksCreated() int {
	n := 0
	for _, r := range s.Results {
		n += r.Chunks()
	}
	return n
}
