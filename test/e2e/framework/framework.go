// Package framework builds the pvtag binary and runs it against drawings
// written to a temporary directory.
package framework

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/creack/pty"
)

// DirPlaceholder in an argument is replaced by the case's working directory.
const DirPlaceholder = "{dir}"

// findProjectRoot searches for the project root directory containing go.mod
func findProjectRoot(startDir string) string {
	dir := startDir
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if content, err := os.ReadFile(goModPath); err == nil {
			// the e2e module has its own go.mod; skip it
			if strings.HasPrefix(strings.TrimSpace(string(content)), "module github.com/pvtag/pvtag\n") {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached root directory
		}
		dir = parent
	}
	return ""
}

// Framework provides utilities for running e2e tests
type Framework struct {
	BinaryPath string
	Timeout    time.Duration
}

// TestCase represents a single e2e test case
type TestCase struct {
	Name  string
	Files map[string]string // file name -> content, written to the case directory
	Args  []string

	// Interactive runs the binary on a pseudo terminal and types Keys once
	// the screen is up.
	Interactive bool
	Keys        string

	ExpectedOutput []string
	ExpectedExit   int
	Timeout        time.Duration
}

// TestResult represents the result of a test case
type TestResult struct {
	Name     string
	Passed   bool
	Error    string
	Output   string
	ExitCode int
	Dir      string
	Elapsed  time.Duration
}

// ReadFile returns a file from the case directory.
func (r TestResult) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(r.Dir, name))
}

// NewFramework creates a new e2e test framework
func NewFramework() *Framework {
	return &Framework{
		BinaryPath: "",
		Timeout:    10 * time.Second,
	}
}

// SetBinaryPath sets the path to the pvtag binary
func (f *Framework) SetBinaryPath(path string) {
	f.BinaryPath = path
}

// BuildBinary builds the pvtag binary for testing
func (f *Framework) BuildBinary() error {
	if f.BinaryPath != "" {
		return nil // Already set
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	projectRoot := findProjectRoot(wd)
	if projectRoot == "" {
		return fmt.Errorf("could not find project root directory from %s", wd)
	}

	buildDir := filepath.Join(projectRoot, "build")
	binaryPath := filepath.Join(buildDir, "pvtag")

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/pvtag")
	cmd.Dir = projectRoot

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to build binary: %w, output: %s", err, string(output))
	}

	f.BinaryPath = binaryPath
	return nil
}

// prepare writes the case files and returns the working directory.
func prepare(tc TestCase) (string, error) {
	dir, err := os.MkdirTemp("", "pvtag-e2e-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	for name, content := range tc.Files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return dir, nil
}

func (f *Framework) command(ctx context.Context, dir string, tc TestCase) *exec.Cmd {
	args := []string{"--config", "NONE"}
	for _, a := range tc.Args {
		args = append(args, strings.ReplaceAll(a, DirPlaceholder, dir))
	}

	cmd := exec.CommandContext(ctx, f.BinaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"XDG_STATE_HOME="+filepath.Join(dir, "state"),
		"XDG_CONFIG_HOME="+filepath.Join(dir, "config"),
		"NO_COLOR=1",
		"TERM=xterm-256color",
	)
	return cmd
}

// RunTest executes a single test case
func (f *Framework) RunTest(tc TestCase) (result TestResult) {
	start := time.Now()
	result.Name = tc.Name
	defer func() { result.Elapsed = time.Since(start) }()

	if err := f.BuildBinary(); err != nil {
		result.Error = fmt.Sprintf("failed to build binary: %v", err)
		return result
	}

	dir, err := prepare(tc)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Dir = dir

	timeout := tc.Timeout
	if timeout == 0 {
		timeout = f.Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := f.command(ctx, dir, tc)
	if tc.Interactive {
		result.Output, result.ExitCode, err = runInteractive(ctx, cmd, tc.Keys)
	} else {
		result.Output, result.ExitCode, err = run(cmd)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if result.ExitCode != tc.ExpectedExit {
		result.Error = fmt.Sprintf("exit code %d, want %d", result.ExitCode, tc.ExpectedExit)
		return result
	}
	for _, want := range tc.ExpectedOutput {
		if !strings.Contains(result.Output, want) {
			result.Error = fmt.Sprintf("output does not contain %q", want)
			return result
		}
	}

	result.Passed = true
	return result
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func run(cmd *exec.Cmd) (string, int, error) {
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	code, err := exitCode(cmd.Run())
	return out.String(), code, err
}

// runInteractive starts cmd on a pseudo terminal, waits for the first
// screen, types keys and collects everything the program prints.
func runInteractive(ctx context.Context, cmd *exec.Cmd, keys string) (string, int, error) {
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 100})
	if err != nil {
		return "", -1, fmt.Errorf("failed to start command: %w", err)
	}
	defer ptmx.Close()

	outputCh := make(chan string, 1)
	go func() {
		var output strings.Builder
		reader := bufio.NewReader(ptmx)
		// The read fails once the child exits and the pty closes.
		_, _ = io.Copy(&output, reader)
		outputCh <- output.String()
	}()

	// Wait for program initialization
	time.Sleep(500 * time.Millisecond)

	if keys != "" {
		if _, err := ptmx.Write([]byte(keys)); err != nil {
			return "", -1, fmt.Errorf("failed to send keys: %w", err)
		}
	}

	code, waitErr := exitCode(cmd.Wait())
	if ctx.Err() != nil {
		return "", -1, errors.New("test timed out")
	}
	ptmx.Close()
	output := <-outputCh
	return output, code, waitErr
}

// RunTests executes multiple test cases
func (f *Framework) RunTests(testCases []TestCase) []TestResult {
	results := make([]TestResult, len(testCases))
	for i, testCase := range testCases {
		fmt.Printf("Running test: %s\n", testCase.Name)
		results[i] = f.RunTest(testCase)
		if results[i].Passed {
			fmt.Printf("PASS %s (%.2fs)\n", testCase.Name, results[i].Elapsed.Seconds())
		} else {
			fmt.Printf("FAIL %s (%.2fs): %s\n", testCase.Name, results[i].Elapsed.Seconds(), results[i].Error)
		}
	}
	return results
}

// Cleanup removes the case directory.
func (r TestResult) Cleanup() {
	if r.Dir != "" {
		os.RemoveAll(r.Dir) // nolint: errcheck
	}
}
