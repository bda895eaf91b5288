package control

// LineSource feeds G-code lines from storage (SD card) into the executor.
// Implementations live under targets/; tests use in-memory sources.
type LineSource interface {
	// ReadLine returns the next line without its terminator. ok=false at
	// end of data.
	ReadLine() (line string, ok bool)

	// Progress reports completion in percent, 0..100.
	Progress() int

	// Close releases the underlying storage.
	Close()
}

type jobStatus uint8

const (
	jobNone jobStatus = iota
	jobRunning
	jobPaused
)

// fileJob tracks one storage-fed plot. Lines flow through the same queue
// and executor as serial commands; pausing just stops the feed, queued
// lines still drain.
type fileJob struct {
	src    LineSource
	status jobStatus
}

func (j *fileJob) active() bool {
	return j.status != jobNone
}

func (j *fileJob) progress() int {
	if j.src == nil {
		return 0
	}
	return j.src.Progress()
}

func (j *fileJob) finish() {
	if j.src != nil {
		j.src.Close()
		j.src = nil
	}
	j.status = jobNone
}
