// `nsanalyze daemon` - HTTP server that runs nsanalyze on behalf of a remote client
//
// This server responds to GET and POST requests carrying parameters that specify how to run
// nsanalyze against a local run store.  The path for analysis commands is the nsanalyze command
// name, eg, `GET /estimate?...` will run `nsanalyze estimate`.  Adding a run is `POST /add?...`
// with a CBOR-encoded run as the request body.
//
// A query parameter `store=storeName` is required for all requests, it names the run store we're
// operating within and determines the data directory.
//
// Other parameter names are always the long parameter names for nsanalyze and the parameter
// values are always urlencoded as necessary; boolean values carry the value "true".  Most
// parameters and names are forwarded to nsanalyze, with --data-dir supplied by this code.  The
// returned output is the raw output from nsanalyze, whether for success or error.  A successful
// run yields 2xx and an error yields 4xx or 5xx.
//
// Arguments:
//
// -data-root <directory>
//
//  This is a required argument.  The named directory shall have one subdirectory per run store,
//  each holding the store's CBOR run files.
//
// -port <port-number>
//
//  This is an optional argument.  It is the port number on which to listen, the default is 8088.
//
// -analysis-auth <filename>
// -password-file <filename>
//
//  This is an optional argument.  It names a file with username:password pairs, one per line, to
//  be matched with values in an incoming HTTP basic authentication header for a GET operation.
//  (Note, if the connection is not HTTPS then the password may have been intercepted in transit.)
//
// -upload-auth <filename>
//
//  This is an optional but *strongly* recommended argument.  If provided then the file named must
//  provide username:password combinations, to be matched with one in an HTTP basic authentication
//  header for POST operations.
//
// -match-user-and-store
//
//  Optional but *strongly* recommended argument.  If set, and -upload-auth is also provided, then
//  the user name provided by the HTTP connection must match the store name in the query string.
//  The effect is to make it possible for each store to have its own username:password pair and
//  for one uploader not to be able to upload runs into another's store.
//
// -kafka <broker-address>
//
//  This is an optional argument.  If provided, the daemon additionally consumes CBOR-carrying
//  JSON envelopes from the broker's `<store>.ns-run` topics and appends the runs to the
//  corresponding stores, one consumer goroutine per store.
//
// Termination:
//
//  Sending SIGHUP or SIGTERM to `nsanalyze daemon` will shut it down in an orderly manner.
//
//  The daemon is usually run in the background and exit codes are not easily examined, but when
//  the daemon exits it will deliver a non-zero exit code if an error was discovered during
//  startup or shutdown.
//
// Logging:
//
//  The daemon logs everything to the syslog with the tag defined below ("logTag").  Errors
//  encountered during startup are also logged to stderr.

package daemon

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"nsanalyze/auth"
	. "nsanalyze/command"
)

const (
	defaultListenPort = 8088
	logTag            = "nsanalyze"
	authRealm         = "nsanalyze remote access"
)

// Immutable (no mutator operations) and thread-safe.  It *will* be accessed concurrently b/c
// every HTTP handler runs as a separate goroutine.
type DaemonCommand struct {
	DevArgs
	VerboseArgs
	dataRoot          string
	port              uint
	getAuthFile       string
	postAuthFile      string
	matchUserAndStore bool
	kafkaBroker       string

	getAuthenticator  *auth.Authenticator
	postAuthenticator *auth.Authenticator
	cmdlineHandler    CommandLineHandler
}

func New(cmdlineHandler CommandLineHandler) *DaemonCommand {
	dc := new(DaemonCommand)
	dc.cmdlineHandler = cmdlineHandler
	return dc
}

func (dc *DaemonCommand) Add(fs *flag.FlagSet) {
	dc.DevArgs.Add(fs)
	dc.VerboseArgs.Add(fs)
	fs.StringVar(&dc.dataRoot, "data-root", "", "Run store root `directory` (required)")
	fs.UintVar(&dc.port, "port", defaultListenPort, "Listen for connections on `port`")
	fs.StringVar(&dc.getAuthFile, "analysis-auth", "", "Authentication info `filename` for analysis access")
	fs.StringVar(&dc.postAuthFile, "upload-auth", "", "Authentication info `filename` for run upload access")
	fs.BoolVar(&dc.matchUserAndStore, "match-user-and-store", false, "Require user name to match store name")
	fs.StringVar(&dc.kafkaBroker, "kafka", "", "Also ingest runs from this Kafka `broker` [default: none]")
	fs.StringVar(&dc.getAuthFile, "password-file", "", "Alias for -analysis-auth")
}

func (dc *DaemonCommand) Summary() []string {
	return []string{
		"Run nsanalyze as an HTTP server that responds to GET and POST for run",
		"analysis and upload.",
	}
}

func (dc *DaemonCommand) Validate() error {
	var e1, e2, e3, e4, e5 error
	e1 = dc.DevArgs.Validate()
	e2 = dc.VerboseArgs.Validate()
	if dc.dataRoot == "" {
		e3 = errors.New("Required -data-root argument is absent")
	} else if info, err := os.Stat(dc.dataRoot); err != nil || !info.IsDir() {
		e3 = fmt.Errorf("-data-root %s does not name a directory", dc.dataRoot)
	}
	if dc.getAuthFile != "" {
		dc.getAuthenticator, e4 = auth.ReadPasswords(dc.getAuthFile)
		if e4 != nil {
			e4 = fmt.Errorf("Failed to read analysis authentication file %w", e4)
		}
	}
	if dc.postAuthFile != "" {
		dc.postAuthenticator, e5 = auth.ReadPasswords(dc.postAuthFile)
		if e5 != nil {
			e5 = fmt.Errorf("Failed to read upload authentication file %w", e5)
		}
	}
	return errors.Join(e1, e2, e3, e4, e5)
}
