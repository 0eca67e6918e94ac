package workers

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gantrylabs/gantry/worker"
)

// Doesn't make sense to make a SimWorker that doesn't resume, so use a
// dummy channel.
func NewSimWorker(script ...string) *SimWorker {
	return &SimWorker{script: script, resumeCh: make(chan struct{})}
}

// SimWorker works by simulating its script.
// Each line in the script is simulated in order.
// Valid lines are:
// complete <result int>
// error <message>
// panic <message>
// pause (waits for Resume() to be called, or cancellation)
// sleep <millis int>
// progress <current int> <total int> <message>
// status <message>
// "#..." comment, ignored
type SimWorker struct {
	script   []string
	resumeCh chan struct{}

	mu         sync.Mutex
	cleanups   int
	cleanupErr error
}

// Resume unblocks a waiting pause step. It blocks until one is waiting.
func (w *SimWorker) Resume() {
	w.resumeCh <- struct{}{}
}

// CleanupCount returns how many times Cleanup has run.
func (w *SimWorker) CleanupCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cleanups
}

// FailCleanup makes every subsequent Cleanup return err.
func (w *SimWorker) FailCleanup(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cleanupErr = err
}

func (w *SimWorker) DoWork(run *worker.Run) (interface{}, error) {
	steps, err := w.parse()
	if err != nil {
		return nil, err
	}
	for _, step := range steps {
		if run.Cancelled() {
			return nil, nil
		}
		result, done, err := step.run(run)
		if done || err != nil {
			return result, err
		}
	}
	return nil, nil
}

func (w *SimWorker) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cleanups++
	return w.cleanupErr
}

// parse parses the script into steps
func (w *SimWorker) parse() (steps []simStep, err error) {
	for _, line := range w.script {
		step, err := w.parseLine(line)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (w *SimWorker) parseLine(line string) (simStep, error) {
	if strings.HasPrefix(line, "#") {
		return &noopStep{}, nil
	}
	splits := strings.SplitN(line, " ", 2)
	opcode, rest := splits[0], ""
	if len(splits) == 2 {
		rest = splits[1]
	}
	switch opcode {
	case "complete":
		result, err := strconv.Atoi(rest)
		if err != nil {
			return nil, err
		}
		return &completeStep{result}, nil
	case "error":
		return &errorStep{rest}, nil
	case "panic":
		return &panicStep{rest}, nil
	case "pause":
		return &pauseStep{w.resumeCh}, nil
	case "sleep":
		millis, err := strconv.Atoi(rest)
		if err != nil {
			return nil, err
		}
		return &sleepStep{time.Duration(millis) * time.Millisecond}, nil
	case "progress":
		parts := strings.SplitN(rest, " ", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("can't simulate progress: %v", rest)
		}
		current, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, err
		}
		total, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, err
		}
		message := ""
		if len(parts) == 3 {
			message = parts[2]
		}
		return &progressStep{current, total, message}, nil
	case "status":
		return &statusStep{rest}, nil
	}
	return nil, fmt.Errorf("can't simulate script line: %v", line)
}

type simStep interface {
	// run simulates one step. done ends the script with result as the
	// job's result.
	run(run *worker.Run) (result interface{}, done bool, err error)
}

type completeStep struct {
	result int
}

func (s *completeStep) run(run *worker.Run) (interface{}, bool, error) {
	return s.result, true, nil
}

type errorStep struct {
	message string
}

func (s *errorStep) run(run *worker.Run) (interface{}, bool, error) {
	return nil, true, errors.New(s.message)
}

type panicStep struct {
	message string
}

func (s *panicStep) run(run *worker.Run) (interface{}, bool, error) {
	panic(s.message)
}

type pauseStep struct {
	resumeCh chan struct{}
}

func (s *pauseStep) run(run *worker.Run) (interface{}, bool, error) {
	select {
	case <-s.resumeCh:
	case <-run.Done():
	}
	return nil, false, nil
}

type sleepStep struct {
	duration time.Duration
}

func (s *sleepStep) run(run *worker.Run) (interface{}, bool, error) {
	timer := time.NewTimer(s.duration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-run.Done():
	}
	return nil, false, nil
}

type progressStep struct {
	current int
	total   int
	message string
}

func (s *progressStep) run(run *worker.Run) (interface{}, bool, error) {
	run.ReportProgress(s.current, s.total, s.message)
	return nil, false, nil
}

type statusStep struct {
	message string
}

func (s *statusStep) run(run *worker.Run) (interface{}, bool, error) {
	run.ReportStatus(s.message)
	return nil, false, nil
}

type noopStep struct{}

func (s *noopStep) run(run *worker.Run) (interface{}, bool, error) {
	return nil, false, nil
}
