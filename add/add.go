// The "add" command adds a run to the data store.  It reads a CBOR-encoded run from a provided
// stream and appends it to the persistent store under its standard save name, or under an
// explicit -name.  This command is remotable: against a remote daemon it turns into a POST with
// the run as the request body.

package add

import (
	"errors"
	"flag"
	"fmt"
	"io"

	. "nsanalyze/command"
	"nsanalyze/common"
	"nsanalyze/db"
)

var addHelp = []string{
	"Add a run to the data store.  The run is read from stdin as CBOR and",
	"stored under its standard save name unless -name says otherwise.",
}

type AddCommand struct /* implements RemotableCommand */ {
	DevArgs
	VerboseArgs
	DataDirArgs
	RemotingArgs
	Name string
}

func (ac *AddCommand) Summary() []string {
	return addHelp
}

func (ac *AddCommand) Add(fs *flag.FlagSet) {
	ac.DevArgs.Add(fs)
	ac.VerboseArgs.Add(fs)
	ac.DataDirArgs.Add(fs)
	ac.RemotingArgs.Add(fs)
	fs.StringVar(&ac.Name, "name", "",
		"Store the run under this `name` [default: derived from the run's settings]")
}

func (ac *AddCommand) Validate() error {
	e1 := ac.DevArgs.Validate()
	e2 := ac.VerboseArgs.Validate()
	e3 := ac.RemotingArgs.Validate()
	var e4 error
	if ac.Remoting {
		if ac.DataDir != "" {
			e4 = errors.New("-data-dir may not be used with -remote or -store")
		}
	} else {
		e4 = ac.DataDirArgs.Validate()
		if e4 == nil && ac.DataDir == "" {
			e4 = errors.New("Required -data-dir argument is absent")
		}
	}
	return errors.Join(e1, e2, e3, e4)
}

func (ac *AddCommand) ReifyForRemote(x *Reifier) error {
	e1 := ac.DevArgs.ReifyForRemote(x)
	// VerboseArgs, DataDirArgs, and RemotingArgs aren't used in remoting and all error checking
	// has already been performed.
	x.String("store", ac.Store)
	x.String("name", ac.Name)
	return e1
}

func (ac *AddCommand) AddData(stdin io.Reader) error {
	r, err := db.ReadRun(stdin)
	if err != nil {
		return fmt.Errorf("Can't decode run data: %w", err)
	}
	store, err := db.OpenPersistentStore(ac.DataDir)
	if err != nil {
		return err
	}
	name := ac.Name
	if name == "" {
		name = db.SaveName(r.Settings)
	}
	if err := store.Add(name, r); err != nil {
		return err
	}
	if ac.Verbose {
		common.Log.Infof("Stored run %s with %d threads", name, len(r.Threads))
	}
	return nil
}
