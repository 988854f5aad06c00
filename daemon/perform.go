// When adding a new command to the daemon, several points in this file have to be updated:
//
// - a new handler has to be installed in RunDaemon()
// - any special argument construction has to be created in httpGetHandler() or httpPostHandler()
// - any local-only arguments that should never be forwarded need to be added to the blacklist
//   in argOk()

package daemon

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/syslog"
	"net/http"
	"os"
	"path"
	"strings"
	"syscall"

	"nsanalyze/auth"
	"nsanalyze/common"
	"nsanalyze/db"
	"nsanalyze/httpsrv"
	"nsanalyze/process"
)

// Note, this should *NOT* be called Perform(), so that we can be sure we're not confusing a
// DaemonCommand with an AnalysisCommand.

func (dc *DaemonCommand) RunDaemon(_ io.Reader, _, stderr io.Writer) error {
	logger, err := syslog.Dial("", "", syslog.LOG_INFO|syslog.LOG_USER, logTag)
	if err != nil {
		return fmt.Errorf("FATAL ERROR: Failing to open logger: %v", err)
	}
	common.Log.SetUnderlying(logger)

	// Note "daemon" is not a command here
	http.HandleFunc("/estimate", httpGetHandler(dc, "estimate"))
	http.HandleFunc("/errors", httpGetHandler(dc, "errors"))
	http.HandleFunc("/add", httpPostHandler(dc, "add", "application/cbor"))

	if dc.kafkaBroker != "" {
		stores, err := dc.storeNames()
		if err != nil {
			return err
		}
		for _, store := range stores {
			ds, err := db.OpenPersistentStore(dc.storeDataDir(store))
			if err != nil {
				return err
			}
			store := store
			go common.Forever(
				func() {
					runKafka(dc.kafkaBroker, store, ds, dc.Verbose)
				},
				stderr,
			)
		}
	}

	var programFailed bool
	s := httpsrv.New(dc.Verbose, int(dc.port), func(err error) {
		programFailed = true
	})
	go s.Start()

	// Wait here until we're stopped by SIGHUP (manual) or SIGTERM (from OS during shutdown).
	process.WaitForSignal(syscall.SIGHUP, syscall.SIGTERM)
	s.Stop()

	if programFailed {
		return errors.New("HTTP server failed to start, or errored out")
	}
	return nil
}

func (dc *DaemonCommand) storeDataDir(store string) string {
	return path.Join(dc.dataRoot, store)
}

func (dc *DaemonCommand) storeNames() ([]string, error) {
	entries, err := os.ReadDir(dc.dataRoot)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// HTTP handlers
//
// Documented behavior: the server will close the request body, we don't need to do it.

func httpGetHandler(
	dc *DaemonCommand,
	command string,
) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _, storeName, ok :=
			requestPreamble(dc, w, r, "GET", dc.getAuthenticator, authRealm, "")
		if !ok {
			return
		}

		arguments := []string{"--data-dir", dc.storeDataDir(storeName)}

		for name, vs := range r.URL.Query() {
			if name == "store" {
				continue
			}

			if !argOk(name) {
				w.WriteHeader(400)
				fmt.Fprintf(w, "Bad parameter %s", name)
				if dc.Verbose {
					common.Log.Warningf("Bad parameter %s", name)
				}
				return
			}

			// Repeats are OK, the commands allow them in a number of cases.
			//
			// Go requires "=" between parameter and name for boolean params, but allows it for
			// every type, so do it uniformly.
			for _, v := range vs {
				arguments = append(arguments, "--"+name+"="+v)
			}
		}

		stdout, ok := runVerb(dc, w, command, arguments, []byte{})
		if !ok {
			return
		}

		w.WriteHeader(200)
		fmt.Fprint(w, stdout)
	}
}

func httpPostHandler(
	dc *DaemonCommand,
	command string,
	contentType string,
) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, userName, storeName, ok :=
			requestPreamble(dc, w, r, "POST", dc.postAuthenticator, "", contentType)
		if !ok {
			return
		}

		if dc.matchUserAndStore && userName != "" && storeName != userName {
			w.WriteHeader(400)
			fmt.Fprintf(w, "Upload not authorized")
			if dc.Verbose {
				common.Log.Warningf("Upload not authorized")
			}
			return
		}

		arguments := []string{"--data-dir", dc.storeDataDir(storeName)}
		if names, found := r.URL.Query()["name"]; found && len(names) == 1 && names[0] != "" {
			arguments = append(arguments, "--name", names[0])
		}

		stdout, ok := runVerb(dc, w, command, arguments, payload)
		if !ok {
			return
		}

		w.WriteHeader(200)
		fmt.Fprint(w, stdout)
	}
}

func requestPreamble(
	dc *DaemonCommand,
	w http.ResponseWriter,
	r *http.Request,
	method string,
	authenticator *auth.Authenticator,
	realm string,
	contentType string,
) (payload []byte, userName, storeName string, ok bool) {
	if dc.Verbose {
		// Header reveals auth info, don't put it into logs
		common.Log.Infof("Request from %s: %v", r.RemoteAddr, r.URL.String())
	}

	if !httpsrv.AssertMethod(w, r, method, dc.Verbose) {
		return
	}

	authOk, userName := httpsrv.Authenticate(w, r, authenticator, realm, dc.Verbose)
	if !authOk {
		return
	}

	payload, havePayload := httpsrv.ReadPayload(w, r, dc.Verbose)
	if !havePayload {
		return
	}

	if contentType != "" {
		if !httpsrv.AssertContentType(w, r, contentType, dc.Verbose) {
			return
		}
	}

	storeValues, found := r.URL.Query()["store"]
	if !found || len(storeValues) != 1 || storeValues[0] == "" || !storeNameOk(storeValues[0]) {
		w.WriteHeader(400)
		fmt.Fprintf(w, "Bad parameters - missing or empty or repeated or malformed 'store'")
		if dc.Verbose {
			common.Log.Warningf("Bad parameters - missing or empty or repeated or malformed 'store'")
		}
		return
	}
	storeName = storeValues[0]

	ok = true
	return
}

func runVerb(
	dc *DaemonCommand,
	w http.ResponseWriter,
	verb string,
	arguments []string,
	input []byte,
) (stdout string, ok bool) {
	cmdName := "<nsanalyze>"

	// Run the command and report the result

	if dc.Verbose {
		common.Log.Infof("Command: %s %s", cmdName, verb+" "+strings.Join(arguments, " "))
	}

	anyCmd, _ := dc.cmdlineHandler.ParseVerb(cmdName, verb)
	if anyCmd == nil {
		errResponse(w, 400, fmt.Errorf("Bad verb in daemon-dispatched command: %s", verb), "", dc.Verbose)
		return
	}
	fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
	err := dc.cmdlineHandler.ParseArgs(verb, arguments, anyCmd, fs)
	if err != nil {
		errResponse(w, 400, err, "", dc.Verbose)
		return
	}

	// The -cpuprofile option is ignored here, it should have forced ParseArgs to error out.

	var stdoutBuf, stderrBuf strings.Builder
	err = dc.cmdlineHandler.HandleCommand(anyCmd, bytes.NewReader(input), &stdoutBuf, &stderrBuf)
	stdout = stdoutBuf.String()
	stderr := stderrBuf.String()
	if err != nil {
		errResponse(w, 400, err, stderr, dc.Verbose)
		return
	}
	if stderr != "" {
		common.Log.Warningf("%s", stderr)
	}

	ok = true
	return
}

func errResponse(w http.ResponseWriter, code int, err error, stderr string, verbose bool) {
	w.WriteHeader(code)
	fmt.Fprint(w, err.Error())
	if stderr != "" {
		fmt.Fprint(w, "\n", stderr)
	}
	if verbose {
		common.Log.Warningf("ERROR: %v", err)
	}
}

// Disallow argument names that are malformed or are specific values.  This is not fabulous but
// maintaining a whitelist is a lot of work.

func argOk(arg string) bool {
	// Args are alphabetic and lower-case only, except - is allowed except in the first position
	for i, c := range arg {
		switch {
		case c >= 'a' && c <= 'z':
			// OK
		case c == '-' && i > 0:
			// OK
		default:
			return false
		}
	}

	// -e is the only legitimate short option, see command/args.go and the verbs.
	if len(arg) <= 1 && arg != "e" {
		return false
	}

	// Specific names are excluded; the names in the comments relate to structure names in
	// command/args.go.
	switch arg {
	case "cpuprofile":
		// DevArgs
		return false
	case "data-dir":
		// DataDirArgs
		return false
	case "database":
		// SourceArgs
		return false
	case "store", "remote", "auth-file":
		// RemotingArgs
		return false
	case "verbose", "v":
		// VerboseArgs
		return false
	case "workers":
		// A local resource decision, the daemon picks its own value.
		return false
	}
	return true
}

// Store names become path components under the data root, so constrain them hard.

func storeNameOk(name string) bool {
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			// OK
		default:
			return false
		}
	}
	return name != ""
}
