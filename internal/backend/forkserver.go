package backend

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/edgefuzz/edgefuzz/internal/coverage"
)

// Fixed file descriptor numbers the AFL fork-server protocol expects the
// instrumented runner to find its pipes at.
const (
	forksrvFDIn  = 198
	forksrvFDOut = 199
)

// ForkServerConfig parameterizes a ForkServer backend.
type ForkServerConfig struct {
	// Runner is the instrumented emulator/tracer binary (e.g. a
	// fork-server-patched QEMU user-mode binary).
	Runner string
	// RunnerArgs are passed to Runner, with Target appended last.
	RunnerArgs []string
	// Target is the path to the target executable under test.
	Target string
	// WorkDir holds the named pipes and the input staging file.
	WorkDir string
	// Timeout is the per-execution wait on FIFO-out; 0 disables hang
	// detection.
	Timeout time.Duration
}

// ForkServer drives a long-lived fork-server co-process over two named
// pipes, amortizing target process setup across many executions.
type ForkServer struct {
	cfg ForkServerConfig
	shm *coverage.SharedMap

	fifoInPath  string
	fifoOutPath string

	fifoIn  *os.File // engine's write end of forksrv_in
	fifoOut *os.File // engine's read end of forksrv_out
	childIn  *os.File // child's end, dup2'd to fd 198
	childOut *os.File // child's end, dup2'd to fd 199

	inputFile *os.File

	cmd *exec.Cmd
}

// NewForkServer constructs a ForkServer; Initialize must be called before
// any Execute.
func NewForkServer(cfg ForkServerConfig, shm *coverage.SharedMap) *ForkServer {
	return &ForkServer{
		cfg:         cfg,
		shm:         shm,
		fifoInPath:  filepath.Join(cfg.WorkDir, "forksrv_in"),
		fifoOutPath: filepath.Join(cfg.WorkDir, "forksrv_out"),
	}
}

// Initialize creates the named pipes and the input staging file, spawns
// the runner with its fork-server fds installed at fd 198/199, and
// blocks for the startup handshake.
func (f *ForkServer) Initialize() error {
	if err := os.MkdirAll(f.cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir %s: %w", f.cfg.WorkDir, err)
	}

	if err := unix.Mkfifo(f.fifoInPath, 0o600); err != nil {
		return fmt.Errorf("mkfifo %s: %w", f.fifoInPath, err)
	}
	if err := unix.Mkfifo(f.fifoOutPath, 0o600); err != nil {
		return fmt.Errorf("mkfifo %s: %w", f.fifoOutPath, err)
	}

	var err error
	// A FIFO opened O_RDWR never blocks waiting for a peer, which lets
	// the engine and the child each independently open their own
	// descriptor on the same path without a fixed open order.
	if f.fifoIn, err = os.OpenFile(f.fifoInPath, os.O_RDWR, 0); err != nil {
		return fmt.Errorf("open %s: %w", f.fifoInPath, err)
	}
	if f.fifoOut, err = os.OpenFile(f.fifoOutPath, os.O_RDWR, 0); err != nil {
		return fmt.Errorf("open %s: %w", f.fifoOutPath, err)
	}
	if f.childIn, err = os.OpenFile(f.fifoInPath, os.O_RDWR, 0); err != nil {
		return fmt.Errorf("open %s for child: %w", f.fifoInPath, err)
	}
	if f.childOut, err = os.OpenFile(f.fifoOutPath, os.O_RDWR, 0); err != nil {
		return fmt.Errorf("open %s for child: %w", f.fifoOutPath, err)
	}

	inputPath := filepath.Join(f.cfg.WorkDir, "__input_file")
	if f.inputFile, err = os.OpenFile(inputPath, os.O_RDWR|os.O_CREATE, 0o600); err != nil {
		return fmt.Errorf("create input file: %w", err)
	}

	// Install the child's pipe ends at fixed fd numbers in this process.
	// dup2 clears FD_CLOEXEC on the target descriptor, so fd 198/199
	// survive the fork that exec.Cmd.Start performs below and land at
	// the same numbers in the runner.
	if err := unix.Dup2(int(f.childIn.Fd()), forksrvFDIn); err != nil {
		return fmt.Errorf("install forkserver fd %d: %w", forksrvFDIn, err)
	}
	if err := unix.Dup2(int(f.childOut.Fd()), forksrvFDOut); err != nil {
		return fmt.Errorf("install forkserver fd %d: %w", forksrvFDOut, err)
	}

	args := append(append([]string{}, f.cfg.RunnerArgs...), f.cfg.Target)
	f.cmd = exec.Command(f.cfg.Runner, args...)
	f.cmd.Env = append(os.Environ(), f.shm.Env())
	f.cmd.Stdin = f.inputFile
	f.cmd.Stdout = os.Stdout
	f.cmd.Stderr = os.Stderr

	if err := f.cmd.Start(); err != nil {
		return fmt.Errorf("start runner %s: %w", f.cfg.Runner, err)
	}

	return f.handshake()
}

// handshake waits for the 4 ready bytes the runner writes on startup,
// detecting the runner exiting early (e.g. an unlaunchable target) as a
// fatal configuration error distinct from a later hang.
func (f *ForkServer) handshake() error {
	ready, err := waitReadable(f.fifoOut, f.cmd.Process, 2*time.Second)
	if err != nil {
		return fmt.Errorf("forkserver handshake: %w", err)
	}
	if !ready {
		return fmt.Errorf("forkserver handshake: runner exited before becoming ready")
	}

	buf := make([]byte, 4)
	if _, err := readFull(f.fifoOut, buf); err != nil {
		return fmt.Errorf("forkserver handshake: %w", err)
	}
	return nil
}

// Execute zeroes the shared map, stages data as the target's stdin,
// requests a fork, and waits for the child's exit status (or a hang).
func (f *ForkServer) Execute(data []byte) (*Result, error) {
	f.shm.Zero()

	if err := f.stageInput(data); err != nil {
		return nil, err
	}

	start := time.Now()

	if _, err := f.fifoIn.Write([]byte{0, 0, 0, 0}); err != nil {
		return nil, fmt.Errorf("request fork: %w", err)
	}

	// The PID word follows the fork request almost instantly (§4.5(ii)):
	// it is never the thing worth timing out on. The real wait is for the
	// status word the fork-server writes once the child has run to
	// completion, below.
	pid, err := readPID(f.fifoOut)
	if err != nil {
		return nil, fmt.Errorf("read child pid: %w", err)
	}

	if f.cfg.Timeout > 0 {
		ready, err := waitReadable(f.fifoOut, f.cmd.Process, f.cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("wait for execution: %w", err)
		}
		if !ready {
			_ = unix.Kill(pid, unix.SIGKILL)
			return &Result{
				Trace:   coverage.NewTrace(f.shm.Snapshot(), false, 0, 0, time.Since(start).Seconds()),
				Outcome: OutcomeHang,
			}, nil
		}
	}

	statusBuf := make([]byte, 4)
	if _, err := readFull(f.fifoOut, statusBuf); err != nil {
		return nil, fmt.Errorf("read wait status: %w", err)
	}
	status := binary.LittleEndian.Uint32(statusBuf)
	exitSignal, exitCode, didCrash := decodeWaitStatus(status)

	outcome := OutcomeNormal
	if didCrash {
		outcome = OutcomeCrash
	}

	trace := coverage.NewTrace(f.shm.Snapshot(), didCrash, exitSignal, exitCode, time.Since(start).Seconds())
	return &Result{Trace: trace, Outcome: outcome}, nil
}

// stageInput rewrites the reused input file with data: seek to 0, write
// the payload, truncate to its length, seek to 0 again, so the target
// reads exactly data from stdin.
func (f *ForkServer) stageInput(data []byte) error {
	if _, err := f.inputFile.Seek(0, 0); err != nil {
		return fmt.Errorf("stage input: %w", err)
	}
	if _, err := f.inputFile.Write(data); err != nil {
		return fmt.Errorf("stage input: %w", err)
	}
	if err := f.inputFile.Truncate(int64(len(data))); err != nil {
		return fmt.Errorf("stage input: %w", err)
	}
	if _, err := f.inputFile.Seek(0, 0); err != nil {
		return fmt.Errorf("stage input: %w", err)
	}
	return nil
}

// Cleanup releases every resource Initialize acquired, aggregating
// failures instead of stopping at the first one. Safe to call more than
// once.
func (f *ForkServer) Cleanup() error {
	var err error

	if f.cmd != nil && f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
		_, waitErr := f.cmd.Process.Wait()
		if waitErr != nil {
			err = multierr.Append(err, fmt.Errorf("wait runner: %w", waitErr))
		}
		f.cmd = nil
	}

	for _, fh := range []**os.File{&f.fifoIn, &f.fifoOut, &f.childIn, &f.childOut, &f.inputFile} {
		if *fh == nil {
			continue
		}
		if closeErr := (*fh).Close(); closeErr != nil {
			err = multierr.Append(err, closeErr)
		}
		*fh = nil
	}

	if f.fifoInPath != "" {
		if rmErr := os.Remove(f.fifoInPath); rmErr != nil && !os.IsNotExist(rmErr) {
			err = multierr.Append(err, rmErr)
		}
	}
	if f.fifoOutPath != "" {
		if rmErr := os.Remove(f.fifoOutPath); rmErr != nil && !os.IsNotExist(rmErr) {
			err = multierr.Append(err, rmErr)
		}
	}
	inputPath := filepath.Join(f.cfg.WorkDir, "__input_file")
	if rmErr := os.Remove(inputPath); rmErr != nil && !os.IsNotExist(rmErr) {
		err = multierr.Append(err, rmErr)
	}

	if f.shm != nil {
		if shmErr := f.shm.Close(); shmErr != nil {
			err = multierr.Append(err, shmErr)
		}
	}

	return err
}

// waitReadable blocks until fifo is readable, timeout elapses, or proc
// has already exited (checked via a non-blocking wait4 probe between
// short select slices). It reports false on timeout or early exit, true
// on readiness.
func waitReadable(fifo *os.File, proc *os.Process, timeout time.Duration) (bool, error) {
	const pollInterval = 50 * time.Millisecond
	fd := int(fifo.Fd())
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if remaining > pollInterval {
			remaining = pollInterval
		}

		tv := unix.NsecToTimeval(remaining.Nanoseconds())
		set := &unix.FdSet{}
		fdSet(set, fd)

		n, err := unix.Select(fd+1, set, nil, nil, &tv)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return false, err
		}
		if n > 0 {
			return true, nil
		}

		if proc != nil && processExited(proc) {
			return false, nil
		}
	}
}

// processExited reports whether proc has already terminated, using a
// non-blocking wait that does not reap a still-running child.
func processExited(proc *os.Process) bool {
	var status unix.WaitStatus
	pid, err := unix.Wait4(proc.Pid, &status, unix.WNOHANG, nil)
	return err == nil && pid == proc.Pid
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << uint(fd%64)
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("unexpected EOF from forkserver")
		}
	}
	return total, nil
}

// decodeWaitStatus extracts the exit signal and exit code from a raw
// wait status word as the fork-server encodes it, and classifies the
// execution as a crash iff a signal terminated it.
func decodeWaitStatus(status uint32) (exitSignal, exitCode uint8, didCrash bool) {
	exitSignal = uint8(status & 0x7F)
	exitCode = uint8((status >> 8) & 0xFF)
	didCrash = exitSignal != 0
	return
}

func readPID(f *os.File) (int, error) {
	buf := make([]byte, 4)
	if _, err := readFull(f, buf); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(buf)), nil
}
