package translate

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/nmurali/signbridge/internal/logging"
)

// idleTimeout is how long a model process may sit unused before the
// runner shuts it down. The next Translate starts it again.
const idleTimeout = 30 * time.Second

// Runner implements Translator over a long-running model subprocess.
// Frames go to the model's stdin as a 4-byte big-endian length followed
// by JPEG bytes; the model answers with one JSON line per frame:
//
//	{"predictions": [{"gloss": "hello", "score": 0.91}], "error": ""}
//
// The process is started lazily on first translation.
type Runner struct {
	model     *Model
	logger    *slog.Logger
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer *time.Timer
}

// NewRunner creates a runner for the given model. The model process is
// not started until the first Translate call.
func NewRunner(model *Model, logger *slog.Logger) *Runner {
	return &Runner{
		model:  model,
		logger: logging.WithComponent(logger, "runner"),
	}
}

// ModelName returns the name of the model this runner drives.
func (r *Runner) ModelName() string {
	return r.model.Manifest.Name
}

// Translate sends the frame to the model process and returns its
// predictions.
func (r *Runner) Translate(frame *gocv.Mat) ([]Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureStarted(); err != nil {
		return nil, err
	}

	// JPEG needs 8-bit pixels; normalized frames arrive as floats.
	src := *frame
	if src.Type() != gocv.MatTypeCV8UC3 {
		conv := gocv.NewMat()
		src.ConvertTo(&conv, gocv.MatTypeCV8UC3)
		defer conv.Close()
		src = conv
	}

	buf, err := gocv.IMEncode(".jpg", src)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := r.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := r.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := r.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Predictions []Prediction `json:"predictions"`
		Error       string       `json:"error"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("model error: %s", response.Error)
	}

	r.resetIdleTimer()

	return response.Predictions, nil
}

// Close shuts down the model process.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shutdown()
}

func (r *Runner) ensureStarted() error {
	if r.started {
		return nil
	}

	if _, err := os.Stat(r.model.Executable); err != nil {
		return fmt.Errorf("model executable: %w", err)
	}

	cmd := exec.Command(r.model.Executable)
	// Run in the model directory so relative weight paths resolve.
	cmd.Dir = r.model.Path
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start model %s: %w", r.model.Manifest.Name, err)
	}

	r.cmd = cmd
	r.stdin = stdin
	r.stdout = bufio.NewReader(stdout)
	r.started = true

	r.logger.Info("model process started",
		slog.String("model", r.model.Manifest.Name),
		slog.String("version", r.model.Manifest.Version),
		slog.Int("pid", cmd.Process.Pid))

	return nil
}

func (r *Runner) shutdown() error {
	if !r.started {
		return nil
	}

	if r.idleTimer != nil {
		r.idleTimer.Stop()
		r.idleTimer = nil
	}

	if r.stdin != nil {
		r.stdin.Close()
	}

	err := r.cmd.Wait()
	r.started = false
	r.cmd = nil
	r.stdin = nil
	r.stdout = nil

	r.logger.Info("model process stopped", slog.String("model", r.model.Manifest.Name))

	return err
}

func (r *Runner) resetIdleTimer() {
	if r.idleTimer != nil {
		r.idleTimer.Stop()
	}
	r.idleTimer = time.AfterFunc(idleTimeout, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if err := r.shutdown(); err != nil {
			r.logger.Warn("idle shutdown", logging.Err(err))
		}
	})
}
