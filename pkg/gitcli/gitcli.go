// Package gitcli runs the external git binary.
//
// Remote access goes through the git command line rather than a Go
// implementation of the protocol, so every transport git supports (git://,
// ssh, https, local paths) works the same way it does for the user.
// Each subprocess runs under [Runner.Timeout] and the caller's context.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultTimeout bounds a single git subprocess.
const DefaultTimeout = 10 * time.Minute

// CommandError describes a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode returns the process exit code, or -1 when git did not exit normally.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Runner executes git commands.
type Runner struct {
	Binary  string        // git executable, "git" when empty
	Timeout time.Duration // per command, DefaultTimeout when zero
	Logger  *log.Logger
}

// New creates a Runner. A nil logger uses log.Default().
func New(binary string, timeout time.Duration, logger *log.Logger) *Runner {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Binary: binary, Timeout: timeout, Logger: logger}
}

// LsRemote lists every ref advertised by the remote at url.
func (r *Runner) LsRemote(ctx context.Context, url string) ([]string, error) {
	out, err := r.run(ctx, "", "ls-remote", url)
	if err != nil {
		return nil, err
	}
	return ParseRefs(out), nil
}

// Clone clones url into dir. A non-empty branch (a branch or tag name)
// produces a shallow single-ref clone; otherwise the full history is cloned.
func (r *Runner) Clone(ctx context.Context, url, dir, branch string) error {
	args := []string{"clone", "--quiet"}
	if branch != "" {
		args = append(args, "--depth", "1", "--branch", branch)
	}
	args = append(args, url, dir)
	_, err := r.run(ctx, "", args...)
	return err
}

// ShowRef lists the refs of the repository at dir. A repository without
// refs yields an empty list.
func (r *Runner) ShowRef(ctx context.Context, dir string) ([]string, error) {
	out, err := r.run(ctx, dir, "show-ref")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode() == 1 && len(bytes.TrimSpace(out)) == 0 {
			return nil, nil
		}
		return nil, err
	}
	return ParseRefs(out), nil
}

// FetchTags fetches all tags of origin into the repository at dir.
func (r *Runner) FetchTags(ctx context.Context, dir string) error {
	_, err := r.run(ctx, dir, "fetch", "--quiet", "--tags")
	return err
}

// Archive writes a tar archive of treeish in the repository at dir to output.
func (r *Runner) Archive(ctx context.Context, dir, treeish, output string) error {
	_, err := r.run(ctx, dir, "archive", "--format=tar", "--output="+output, treeish)
	return err
}

func (r *Runner) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	r.Logger.Debug("exec", "cmd", r.Binary+" "+strings.Join(args, " "), "dir", dir)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return stdout.Bytes(), &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// ParseRefs extracts ref names from "<sha>\t<ref>" lines as printed by
// ls-remote and show-ref. Order is preserved.
func ParseRefs(out []byte) []string {
	var refs []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		refs = append(refs, fields[1])
	}
	return refs
}
