// Package auxfiles checks for the auxiliary files a generated Makefile.in
// relies on and installs the missing ones when asked to.
package auxfiles

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/go-automake/automake"
	"github.com/go-automake/automake/diag"
	"github.com/go-automake/automake/internal/dcontext"
	"github.com/go-automake/automake/internal/outfile"
)

//go:embed data
var embedded embed.FS

// executable are the embedded files installed with mode 0755.
var executable = map[string]bool{
	"install-sh": true,
	"missing":    true,
	"depcomp":    true,
}

// DefaultLibDir returns the directory installable files are taken from when
// none is configured. AUTOMAKE_LIBDIR overrides the built-in default.
func DefaultLibDir() string {
	if dir := os.Getenv("AUTOMAKE_LIBDIR"); dir != "" {
		return dir
	}
	return "/usr/share/automake-" + automake.APIVersion
}

// StandardFiles returns the top-level files a package of the given
// strictness must carry.
func StandardFiles(s automake.Strictness) []string {
	switch s {
	case automake.GNU:
		return []string{"INSTALL", "NEWS", "README", "AUTHORS", "ChangeLog", "COPYING"}
	case automake.Gnits:
		return []string{"INSTALL", "NEWS", "README", "AUTHORS", "ChangeLog", "COPYING", "THANKS"}
	}
	return nil
}

// Options control what Require does about a missing file.
type Options struct {
	// AddMissing installs missing files that can be installed.
	AddMissing bool
	// Copy copies files from LibDir instead of symlinking them.
	Copy bool
	// Force replaces installable files that already exist.
	Force bool
	// LibDir holds installable files. Files found there take precedence
	// over the built-in copies.
	LibDir string
}

// Installer tracks required files for one package. It is safe for
// concurrent use.
type Installer struct {
	top   *outfile.Dir
	lib   *outfile.Dir
	opts  Options
	diags *diag.Buffer

	mu        sync.Mutex
	seen      map[string]bool
	installed []string
}

// NewInstaller returns an Installer for the package rooted at top.
// Diagnostics about missing files go to diags.
func NewInstaller(top *outfile.Dir, opts Options, diags *diag.Buffer) *Installer {
	i := &Installer{
		top:   top,
		opts:  opts,
		diags: diags,
		seen:  make(map[string]bool),
	}
	if opts.LibDir != "" {
		i.lib = outfile.New(opts.LibDir)
	}
	return i
}

// Installable reports whether a file named name can be installed by
// --add-missing.
func (i *Installer) Installable(name string) bool {
	if i.lib != nil && i.lib.Exists(name) {
		return true
	}
	_, err := fs.Stat(embedded, "data/"+name)
	return err == nil
}

// Require checks that file, a slash separated path relative to the top
// source directory, exists, installing it if allowed. pos is the place
// that needs the file. Each file is checked once; later calls return the
// first result.
func (i *Installer) Require(ctx context.Context, file string, pos diag.Pos) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if ok, done := i.seen[file]; done {
		return ok
	}
	ok := i.require(ctx, file, pos)
	i.seen[file] = ok
	return ok
}

func (i *Installer) require(ctx context.Context, file string, pos diag.Pos) bool {
	name := path.Base(file)
	installable := i.Installable(name)
	exists := i.top.Exists(file)
	if exists && !(i.opts.Force && i.opts.AddMissing && installable) {
		return true
	}

	display := file
	if path.Dir(file) == "." {
		display = "./" + file
	}
	if !i.opts.AddMissing || !installable {
		if installable {
			i.diags.Errorf(pos, "required file '%s' not found; 'automake --add-missing' can install '%s'", display, name)
		} else {
			i.diags.Errorf(pos, "required file '%s' not found", display)
		}
		return false
	}

	if err := i.install(name, file); err != nil {
		i.diags.Errorf(pos, "cannot install '%s': %v", display, err)
		return false
	}
	dcontext.GetLoggerWithField(ctx, "file", file).Infof("%s: installing '%s'", pos, display)
	i.installed = append(i.installed, file)
	return true
}

func (i *Installer) install(name, file string) error {
	if i.lib != nil && i.lib.Exists(name) {
		if !i.opts.Copy {
			return i.top.Symlink(i.lib.FullPath(name), file)
		}
		contents, err := i.lib.GetContent(name)
		if err != nil {
			return err
		}
		fi, err := os.Stat(i.lib.FullPath(name))
		if err != nil {
			return err
		}
		_, err = i.top.PutContent(file, contents, fi.Mode().Perm())
		return err
	}

	contents, err := embedded.ReadFile("data/" + name)
	if err != nil {
		return err
	}
	perm := fs.FileMode(0o644)
	if executable[name] {
		perm = 0o755
	}
	_, err = i.top.PutContent(file, contents, perm)
	return err
}

// Installed returns the files installed so far, sorted.
func (i *Installer) Installed() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	installed := append([]string(nil), i.installed...)
	sort.Strings(installed)
	return installed
}
