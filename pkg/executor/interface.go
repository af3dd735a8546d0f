package executor

import "context"

// Executor defines the interface for executing external commands
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (Result, error)
	// Start launches a long-running command. It is not tied to any context;
	// the caller ends it with Process.Stop.
	Start(name string, args ...string) (Process, error)
	LookPath(name string) (string, error)
}

// Result holds the captured output of one command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Process is a command started with Start.
type Process interface {
	// Done is closed when the process exits.
	Done() <-chan struct{}
	// Err reports why the process exited, with the tail of its output.
	// It is nil while the process is running.
	Err() error
	// Stop interrupts the process and kills it if it does not exit in time.
	Stop() error
}
