package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandTemplateGuards(t *testing.T) {
	text, err := expandTemplate("progs", Keys{"DIR": "bin", "NDIR": "bin"}, Flags{"INSTALL": false, "STDOPTIONS": false})
	require.NoError(t, err)
	require.NotContains(t, text, "install-binPROGRAMS")
	require.Contains(t, text, "clean-binPROGRAMS:\n\t-test -z \"$(bin_PROGRAMS)\" || rm -f $(bin_PROGRAMS)\n")

	text, err = expandTemplate("progs", Keys{"DIR": "bin", "NDIR": "bin"}, Flags{"INSTALL": true, "STDOPTIONS": false})
	require.NoError(t, err)
	require.Contains(t, text, "install-binPROGRAMS: $(bin_PROGRAMS)\n")
	require.NotContains(t, text, "installcheck-binPROGRAMS")

	text, err = expandTemplate("progs", Keys{"DIR": "bin", "NDIR": "bin"}, Flags{"INSTALL": true, "STDOPTIONS": true})
	require.NoError(t, err)
	require.Contains(t, text, "installcheck-binPROGRAMS: install-binPROGRAMS\n")
}

func TestExpandTemplateNegatedGuard(t *testing.T) {
	keys := Keys{"DIR": "nobase_include", "NDIR": "include", "PRIMARY": "HEADERS", "INSTALL": "INSTALL_HEADER"}

	text, err := expandTemplate("data", keys, Flags{"BASE": false, "TRANSFORM": false, "STDOPTIONS": false})
	require.NoError(t, err)
	require.Contains(t, text, "\t  f=$$p; \\\n")
	require.Contains(t, text, "\tfiles=$$list; \\\n")

	text, err = expandTemplate("data", keys, Flags{"BASE": true, "TRANSFORM": false, "STDOPTIONS": false})
	require.NoError(t, err)
	require.NotContains(t, text, "f=$$p;")
	require.NotContains(t, text, "$(transform)")
}

func TestExpandTemplateDropsComments(t *testing.T) {
	text, err := expandTemplate("footer", nil, nil)
	require.NoError(t, err)
	require.False(t, strings.HasPrefix(text, "##"))
	require.True(t, strings.HasSuffix(text, ".NOEXPORT:\n"))
}

func TestExpandTemplateTrimsTrailingBlanks(t *testing.T) {
	text, err := expandTemplate("header-vars", Keys{"SUBDIR": "."}, nil)
	require.NoError(t, err)
	for _, line := range strings.Split(text, "\n") {
		require.False(t, strings.HasSuffix(line, " "), "line %q", line)
	}
	require.Contains(t, text, "subdir = .\n")
}

func TestExpandTemplateErrors(t *testing.T) {
	_, err := expandTemplate("progs", Keys{"DIR": "bin"}, Flags{"INSTALL": true, "STDOPTIONS": false})
	require.EqualError(t, err, "template progs: key %NDIR% not set")

	_, err = expandTemplate("progs", Keys{"DIR": "bin", "NDIR": "bin"}, nil)
	require.EqualError(t, err, "template progs: flag INSTALL not set")

	_, err = expandTemplate("no-such-template", nil, nil)
	require.Error(t, err)
}
