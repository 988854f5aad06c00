package common

import (
	"errors"
	"os"
	"path"

	ini "github.com/lars-t-hansen/ini"
)

// Defaults for some command line arguments can be kept in ~/.nsanalyze, an ini file with a single
// [data-source] section.

// MT: Constant after initialization
var (
	p                  = ini.NewParser()
	store              *ini.Store
	dataSource         = p.AddSection("data-source")
	DataSourceRemote   = dataSource.AddString("remote")
	DataSourceAuthFile = dataSource.AddString("auth-file")
	DataSourceDataDir  = dataSource.AddString("data-dir")
)

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		return
	}
	fn := path.Join(path.Clean(home), ".nsanalyze")
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			Log.Errorf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	store, err = p.Parse(input)
	if err != nil {
		Log.Errorf("Error in trying to parse %s: %s", fn, err.Error())
		return
	}
}

func ApplyDefault(sp *string, f *ini.Field) bool {
	if *sp != "" || store == nil || !f.Present(store) {
		return false
	}
	*sp = os.ExpandEnv(f.StringVal(store))
	return true
}
