// Package workspace provisions the directory tree that every downstream
// processing stage of the Confluence workflow expects to find on the
// shared filesystem.
package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
)

// DefaultMountRoot is where the workflow's shared volumes are mounted.
const DefaultMountRoot = "/mnt"

// InputDir is the directory under the mount root that mirrors the config
// bucket's reference data.
const InputDir = "input"

// dirs is the fixed, versioned list of directories provisioned under the
// mount root. Downstream stages hard-code these locations; extend the
// list when a new algorithm or diagnostic stage is added.
var dirs = []string{
	"input/gage",
	"input/sos",
	"input/sword",
	"input/swot",
	"flpe/geobam",
	"flpe/hivdi",
	"flpe/metroman",
	"flpe/momma",
	"flpe/sad",
	"flpe/sic4dvar",
	"moi",
	"diagnostics/prediagnostics",
	"diagnostics/postdiagnostics/basin",
	"diagnostics/postdiagnostics/reach",
	"offline",
	"validation/figs",
	"output/sos",
	"logs/sic4dvar",
}

// Provision creates the working directory tree under root, including
// intermediate parents. It is idempotent: paths that already exist are
// left untouched and never cause an error.
func Provision(fsys fs.Filesystem, root string) error {
	for _, dir := range dirs {
		path := filepath.Join(root, dir)
		if err := fsys.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("provision %s: %w", path, err)
		}
	}
	return nil
}

// Dirs returns the provisioned directory paths under root.
func Dirs(root string) []string {
	out := make([]string, len(dirs))
	for i, dir := range dirs {
		out[i] = filepath.Join(root, dir)
	}
	return out
}
