// `nsanalyze` -- Analyze stored nested-sampling runs
//
// Run `nsanalyze help` for brief help.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"nsanalyze/add"
	. "nsanalyze/command"
	"nsanalyze/daemon"
	"nsanalyze/errest"
	"nsanalyze/estimate"
)

const NsanalyzeVersion = "0.1.0"

func main() {
	err := nsanalyze()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func nsanalyze() error {
	anyCmd, verb := commandLine()

	if anyCmd.CpuProfileFile() != "" {
		f, err := os.Create(anyCmd.CpuProfileFile())
		if err != nil {
			return fmt.Errorf("Failed to create profile\n%w", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if rCmd, ok := anyCmd.(RemotableCommand); ok && rCmd.RemotingFlags().Remoting {
		return remoteOperation(rCmd, verb, os.Stdin, os.Stdout)
	}

	return handleCommand(anyCmd, os.Stdin, os.Stdout, os.Stderr)
}

// The handler is the behavior container handed to the daemon so that it can redispatch received
// requests onto the verbs without a package cycle.

func newCommandLineHandler() CommandLineHandler {
	return CommandLineHandler{
		ParseVerb:     parseVerb,
		ParseArgs:     parseArgs,
		HandleCommand: handleCommand,
	}
}

func parseVerb(cmdName, maybeVerb string) (cmd Command, verb string) {
	switch maybeVerb {
	case "add":
		cmd = new(add.AddCommand)
	case "daemon":
		cmd = daemon.New(newCommandLineHandler())
	case "estimate":
		cmd = new(estimate.EstimateCommand)
	case "errors":
		cmd = new(errest.ErrorsCommand)
	default:
		return nil, ""
	}
	return cmd, maybeVerb
}

func parseArgs(verb string, args []string, cmd Command, fs *flag.FlagSet) error {
	cmd.Add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) > 0 {
		if lfCmd, ok := cmd.(SetRestArgumentsAPI); ok {
			lfCmd.SetRestArguments(rest)
		} else {
			return fmt.Errorf("Rest arguments not accepted by `%s`", verb)
		}
	}
	return cmd.Validate()
}

func handleCommand(anyCmd Command, stdin io.Reader, stdout, stderr io.Writer) error {
	switch cmd := anyCmd.(type) {
	case AnalysisCommand:
		return localAnalysis(cmd, stdout)
	case *add.AddCommand:
		return cmd.AddData(stdin)
	case *daemon.DaemonCommand:
		return cmd.RunDaemon(stdin, stdout, stderr)
	default:
		return errors.New("NYI command")
	}
}

func commandLine() (Command, string) {
	out := flag.CommandLine.Output()

	if len(os.Args) < 2 {
		fmt.Fprintf(out, "Required operation missing, try `nsanalyze help`\n")
		os.Exit(2)
	}

	verb := os.Args[1]
	switch verb {
	case "help", "-h":
		fmt.Fprintf(out, "Usage: %s command [options] [-- runfile ...]\n", os.Args[0])
		fmt.Fprintf(out, "Commands:\n")
		fmt.Fprintf(out, "  add      - add a run to the data store\n")
		fmt.Fprintf(out, "  daemon   - run as an HTTP server answering remote queries\n")
		fmt.Fprintf(out, "  errors   - estimate sampling uncertainty of estimator values\n")
		fmt.Fprintf(out, "  estimate - compute estimator point values for runs\n")
		fmt.Fprintf(out, "  version  - print information about the program\n")
		fmt.Fprintf(out, "  help     - print this message\n")
		fmt.Fprintf(out, "Each command accepts -h to further explain options.\n")
		os.Exit(0)
	case "version":
		// Must print version on stdout.
		fmt.Printf("nsanalyze version(%s)\n", NsanalyzeVersion)
		os.Exit(0)
	}

	cmd, verb := parseVerb(os.Args[0], verb)
	if cmd == nil {
		fmt.Fprintf(out, "Unknown operation `%s`, try `nsanalyze help`\n", os.Args[1])
		os.Exit(2)
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.Usage = func() {
		restargs := ""
		if _, ok := cmd.(SetRestArgumentsAPI); ok {
			restargs = " [-- runfile ...]"
		}
		fmt.Fprintf(out, "Usage: %s %s [options]%s\n\n", os.Args[0], verb, restargs)
		for _, s := range cmd.Summary() {
			fmt.Fprintln(out, "  ", s)
		}
		fmt.Fprintln(out, "\nOptions:")
		fs.PrintDefaults()
		if restargs != "" {
			fmt.Fprintf(out, "  runfile ...\n    \tInput run files\n")
		}
	}

	err := parseArgs(verb, os.Args[2:], cmd, fs)
	if err != nil {
		fmt.Fprintf(out, "Bad arguments, try -h\n%v\n", err.Error())
		os.Exit(2)
	}

	return cmd, verb
}
