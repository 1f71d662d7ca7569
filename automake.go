package automake

import (
	"fmt"
	"regexp"
)

// APIVersion is the automake release whose Makefile.am dialect this module
// implements. Version requirements in AUTOMAKE_OPTIONS are checked against
// it.
const APIVersion = "1.16"

// Strictness is the level of conformance to the GNU standards a package is
// checked against.
type Strictness int

const (
	// Foreign checks only what is needed for a working Makefile.in.
	Foreign Strictness = iota
	// GNU checks conformance to the GNU coding standards.
	GNU
	// Gnits checks conformance to the Gnits standards.
	Gnits
)

// String returns the option name of the strictness.
func (s Strictness) String() string {
	switch s {
	case Foreign:
		return "foreign"
	case GNU:
		return "gnu"
	case Gnits:
		return "gnits"
	}
	return fmt.Sprintf("Strictness(%d)", int(s))
}

// ParseStrictness returns the strictness named by s.
func ParseStrictness(s string) (Strictness, error) {
	switch s {
	case "foreign":
		return Foreign, nil
	case "gnu":
		return GNU, nil
	case "gnits":
		return Gnits, nil
	}
	return Foreign, fmt.Errorf("unknown strictness %q", s)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (s *Strictness) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseStrictness(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (s Strictness) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

var gnitsVersionRE = regexp.MustCompile(`^\d+\.\d+([a-z]|\.\d+)?(-[A-Za-z0-9]+)?$`)

// GnitsVersion checks a package version against the Gnits numbering
// scheme. A version with a letter or a third number, such as 1.4a or
// 1.4.2, is an alpha release.
func GnitsVersion(v string) (alpha, ok bool) {
	m := gnitsVersionRE.FindStringSubmatch(v)
	if m == nil {
		return false, false
	}
	return m[1] != "", true
}
