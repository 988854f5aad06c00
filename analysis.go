// Handle local data analysis commands

package main

import (
	"fmt"
	"io"

	. "nsanalyze/command"
	"nsanalyze/common"
	"nsanalyze/db"
)

func localAnalysis(cmd AnalysisCommand, stdout io.Writer) error {
	args := cmd.SharedFlags()

	var source db.RunSource
	switch {
	case args.Database != "":
		store, err := db.OpenPostgresStore(args.Database)
		if err != nil {
			return fmt.Errorf("Failed to open run database\n%w", err)
		}
		defer store.Close()
		source = store
	case len(args.RunFiles) > 0:
		source = db.OpenTransientStore(args.RunFiles)
	default:
		store, err := db.OpenPersistentStore(args.DataDir)
		if err != nil {
			return fmt.Errorf("Failed to open run store\n%w", err)
		}
		source = store
	}

	if args.Verbose {
		names, _ := source.RunNames()
		common.Log.Infof("%d runs in the source", len(names))
	}

	err := cmd.Perform(stdout, source)
	if err != nil {
		return fmt.Errorf("Failed to perform operation\n%w", err)
	}

	return nil
}
