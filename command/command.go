package command

import (
	"flag"
	"io"

	"nsanalyze/db"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Represents an nsanalyze command: estimate, errors, add, etc.

type Command interface {
	// Add all arguments including shared arguments
	Add(fs *flag.FlagSet)

	// One-line-per-string description for the help text
	Summary() []string

	// Validate all arguments including shared arguments
	Validate() error

	// Retrieve the cpu profile file name, or ""
	CpuProfileFile() string
}

// A RemotableCommand can be reified onto a query string and forwarded to a remote daemon.

type RemotableCommand interface {
	Command

	// Reify all arguments including shared arguments for remote execution, with checking
	ReifyForRemote(x *Reifier) error

	RemotingFlags() *RemotingArgs
	VerboseFlag() bool
}

// An AnalysisCommand reads runs from a run source and writes a report.

type AnalysisCommand interface {
	RemotableCommand

	// Retrieve shared arguments
	SharedFlags() *SharedArgs

	// Perform the operation on the runs provided by the source
	Perform(out io.Writer, source db.RunSource) error
}

// Commands that take `-- runfile ...` rest arguments implement this.

type SetRestArgumentsAPI interface {
	SetRestArguments(args []string)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// This is a container for behavior.  There are two of these: one for the one-shot command line and
// one for the daemon.  CommandLineHandler exists to deal with Go's prohibition against circular
// package dependencies: the daemon calls indirect back up to the application level, which can then
// call down to the engine again.

type CommandLineHandler struct {
	// Translate `maybeVerb` into a Command and return a normalized verb.  If the translation
	// failed then `cmd` will be nil and `verb` will be "".
	ParseVerb func(cmdName, maybeVerb string) (cmd Command, verb string)

	// Given a verb and command returned from ParseVerb, and a list of arguments and an empty but
	// otherwise initialized flag set, set up argument parsing, perform it, and validate the
	// result.
	ParseArgs func(verb string, args []string, cmd Command, fs *flag.FlagSet) error

	// Given a command initialized with parsed arguments, and i/o streams, run the command.
	HandleCommand func(anyCmd Command, stdin io.Reader, stdout, stderr io.Writer) error
}
