package command

import (
	"errors"
	"flag"
	"fmt"
	"path"
	"strconv"
	"strings"

	"nsanalyze/common"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// DevArgs are for development and their inclusion can be controlled with the devArgs setting,
// below.

type DevArgs struct {
	CpuProfile string
}

const devArgs = true

func (d *DevArgs) CpuProfileFile() string {
	return d.CpuProfile
}

func (d *DevArgs) Add(fs *flag.FlagSet) {
	if devArgs {
		fs.StringVar(&d.CpuProfile, "cpuprofile", "",
			"(Development) write cpu profile to `filename`")
	}
}

func (d *DevArgs) ReifyForRemote(x *Reifier) error {
	if d.CpuProfile != "" {
		return errors.New("-cpuprofile not allowed with remote execution")
	}
	return nil
}

func (d *DevArgs) Validate() error {
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// You wouldn't think -v would be so complicated.

type VerboseArgs struct {
	Verbose bool
}

func (va *VerboseArgs) Add(fs *flag.FlagSet) {
	fs.BoolVar(&va.Verbose, "v", false, "Print verbose diagnostics to stderr")
	fs.BoolVar(&va.Verbose, "verbose", false, "Print verbose diagnostics to stderr")
}

func (va *VerboseArgs) Validate() error {
	return nil
}

func (va *VerboseArgs) VerboseFlag() bool {
	return va.Verbose
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Handle -data-dir

type DataDirArgs struct {
	DataDir string
}

func (dd *DataDirArgs) Add(fs *flag.FlagSet) {
	fs.StringVar(&dd.DataDir, "data-dir", "",
		"Select the root `directory` for run files [default: data-dir from ~/.nsanalyze]")
}

func (dd *DataDirArgs) Validate() error {
	common.ApplyDefault(&dd.DataDir, common.DataSourceDataDir)
	if dd.DataDir != "" {
		dd.DataDir = path.Clean(dd.DataDir)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// RemotingArgs pertain to specifying a remote nsanalyze service.  The daemon can host several
// independent run stores; -store selects one of them.

type RemotingArgs struct {
	Remote   string
	Store    string
	AuthFile string

	Remoting bool
}

func (ra *RemotingArgs) Add(fs *flag.FlagSet) {
	fs.StringVar(&ra.Remote, "remote", "",
		"Select a remote `url` to serve the query [default: remote from ~/.nsanalyze].  Requires -store.")
	fs.StringVar(&ra.Store, "store", "",
		"Select the run store `name` on the remote daemon [default: none].  For use with -remote.")
	fs.StringVar(&ra.AuthFile, "auth-file", "",
		"Provide a `file` with username:password [default: auth-file from ~/.nsanalyze].  For use with -remote.")
}

func (ra *RemotingArgs) Validate() error {
	if ra.Remote != "" || ra.Store != "" {
		common.ApplyDefault(&ra.AuthFile, common.DataSourceAuthFile)
		if ra.Remote == "" {
			common.ApplyDefault(&ra.Remote, common.DataSourceRemote)
		}
		if ra.Remote == "" || ra.Store == "" {
			return fmt.Errorf("-remote and -store must be used together")
		}
		ra.Remoting = true
	}
	return nil
}

func (ra *RemotingArgs) RemotingFlags() *RemotingArgs {
	return ra
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// SourceArgs pertain to where the runs come from: a local data directory, an explicit list of run
// files, a Postgres database, or a remote daemon.

type SourceArgs struct {
	DataDirArgs
	RemotingArgs
	Database string
	RunFiles []string
}

func (s *SourceArgs) Add(fs *flag.FlagSet) {
	s.DataDirArgs.Add(fs)
	s.RemotingArgs.Add(fs)
	fs.StringVar(&s.Database, "database", "",
		"Read runs from the Postgres database at this `uri` instead of from files [default: none]")
}

func (s *SourceArgs) ReifyForRemote(x *Reifier) error {
	// Validate() has already checked that DataDir, RunFiles, Database, Remote, Store, and
	// AuthFile are consistent for remote or local execution; only Store is forwarded.
	x.String("store", s.Store)
	return nil
}

func (s *SourceArgs) SetRestArguments(args []string) {
	s.RunFiles = args
}

func (s *SourceArgs) Validate() error {
	err := s.RemotingArgs.Validate()
	if err != nil {
		return err
	}

	if s.Remoting {
		// If remoting then no local data sources are allowed; disallow explicit values.
		if s.DataDir != "" {
			return fmt.Errorf("-data-dir may not be used with -remote or -store")
		}
		if s.Database != "" {
			return fmt.Errorf("-database may not be used with -remote or -store")
		}
		if len(s.RunFiles) > 0 {
			return fmt.Errorf("-- runfile ... may not be used with -remote or -store")
		}
		return nil
	}

	if s.Database != "" {
		if s.DataDir != "" || len(s.RunFiles) > 0 {
			return fmt.Errorf("-database may not be combined with -data-dir or -- runfile ...")
		}
		return nil
	}

	err = s.DataDirArgs.Validate()
	if err != nil {
		return err
	}
	if len(s.RunFiles) > 0 {
		for i := 0; i < len(s.RunFiles); i++ {
			s.RunFiles[i] = path.Clean(s.RunFiles[i])
		}
	} else if s.DataDir == "" {
		return fmt.Errorf("Required -data-dir, -database, or -- runfile ...")
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// RunSelectionArgs select which named runs of the source to analyze.

type RunSelectionArgs struct {
	Runs []string
}

func (r *RunSelectionArgs) Add(fs *flag.FlagSet) {
	fs.Var(NewRepeatableString(&r.Runs), "run",
		"Select the run with this `name` (repeatable) [default: all runs in the source]")
}

func (r *RunSelectionArgs) ReifyForRemote(x *Reifier) error {
	x.RepeatableString("run", r.Runs)
	return nil
}

func (r *RunSelectionArgs) Validate() error {
	return nil
}

// SelectRuns resolves the selection against the names the source offers: the explicitly named
// runs in the order given, or all of the source's runs.

func (r *RunSelectionArgs) SelectRuns(available []string) ([]string, error) {
	if len(r.Runs) == 0 {
		return available, nil
	}
	for _, name := range r.Runs {
		found := false
		for _, a := range available {
			if a == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("No run named %s in the source", name)
		}
	}
	return r.Runs, nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Shared by all the analysis commands.

type SharedArgs struct {
	DevArgs
	SourceArgs
	RunSelectionArgs
	VerboseArgs
}

func (sa *SharedArgs) SharedFlags() *SharedArgs {
	return sa
}

func (s *SharedArgs) Add(fs *flag.FlagSet) {
	s.DevArgs.Add(fs)
	s.SourceArgs.Add(fs)
	s.RunSelectionArgs.Add(fs)
	s.VerboseArgs.Add(fs)
}

func (s *SharedArgs) ReifyForRemote(x *Reifier) error {
	// We don't forward s.Verbose, it's mostly useful locally.
	return errors.Join(
		s.DevArgs.ReifyForRemote(x),
		s.SourceArgs.ReifyForRemote(x),
		s.RunSelectionArgs.ReifyForRemote(x),
	)
}

func (s *SharedArgs) Validate() error {
	return errors.Join(
		s.DevArgs.Validate(),
		s.SourceArgs.Validate(),
		s.RunSelectionArgs.Validate(),
		s.VerboseArgs.Validate(),
	)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Repeatable arguments.  If we get one more of these types we should parameterize.

type RepeatableString struct {
	xs *[]string
}

func NewRepeatableString(xs *[]string) *RepeatableString {
	return &RepeatableString{xs}
}

func (rs *RepeatableString) String() string {
	if rs == nil || rs.xs == nil {
		return ""
	}
	return strings.Join(*rs.xs, ",")
}

func (rs *RepeatableString) Set(s string) error {
	// Run names can't contain commas, so comma-separation is unambiguous.
	for _, y := range strings.Split(s, ",") {
		if y == "" {
			return errors.New("Empty string")
		}
		*rs.xs = append(*rs.xs, y)
	}
	return nil
}

type RepeatableFloat64 struct {
	xs *[]float64
}

func NewRepeatableFloat64(xs *[]float64) *RepeatableFloat64 {
	return &RepeatableFloat64{xs}
}

func (rs *RepeatableFloat64) String() string {
	if rs == nil || rs.xs == nil {
		return ""
	}
	s := ""
	for _, v := range *rs.xs {
		if s != "" {
			s += ","
		}
		s += fmt.Sprint(v)
	}
	return s
}

func (rs *RepeatableFloat64) Set(s string) error {
	for _, y := range strings.Split(s, ",") {
		if y == "" {
			return errors.New("Empty string")
		}
		v, err := strconv.ParseFloat(y, 64)
		if err != nil {
			return err
		}
		*rs.xs = append(*rs.xs, v)
	}
	return nil
}
