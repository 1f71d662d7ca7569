package configuration

import (
	"os"
	"reflect"

	"gopkg.in/check.v1"
)

type localConfiguration struct {
	Version  Version     `yaml:"version"`
	Log      *Log        `yaml:"log"`
	Makefile []Makefile  `yaml:"makefiles,omitempty"`
	Extra    interface{} `yaml:"extra,omitempty"`
}

type Log struct {
	Formatter string `yaml:"formatter,omitempty"`
}

type Makefile struct {
	Name string `yaml:"name"`
}

var expectedConfig = localConfiguration{
	Version: "0.1",
	Log: &Log{
		Formatter: "json",
	},
	Makefile: []Makefile{
		{Name: "Makefile"},
		{Name: "lib/Makefile"},
		{Name: "src/Makefile"},
	},
}

const testConfig = `version: "0.1"
log:
  formatter: "text"
makefiles:
  - name: "Makefile"
  - name: "lib/Makefile"
  - name: "src/Makefile"`

type ParserSuite struct{}

var _ = check.Suite(new(ParserSuite))

func identity(c interface{}) (interface{}, error) {
	return c, nil
}

func (suite *ParserSuite) TestParserOverwriteInitializedPointer(c *check.C) {
	config := localConfiguration{}

	os.Setenv("AUTOMAKE_LOG_FORMATTER", "json")
	defer os.Unsetenv("AUTOMAKE_LOG_FORMATTER")

	p := NewParser("automake", []VersionedParseInfo{
		{
			Version:        "0.1",
			ParseAs:        reflect.TypeOf(config),
			ConversionFunc: identity,
		},
	})

	err := p.Parse([]byte(testConfig), &config)
	c.Assert(err, check.IsNil)
	c.Assert(config, check.DeepEquals, expectedConfig)
}

const testConfig2 = `version: "0.1"
makefiles:
  - name: "val1"
  - name: "val2"
  - name: "src/Makefile"`

func (suite *ParserSuite) TestParseOverwriteUninitializedPointer(c *check.C) {
	config := localConfiguration{}

	os.Setenv("AUTOMAKE_LOG_FORMATTER", "json")
	defer os.Unsetenv("AUTOMAKE_LOG_FORMATTER")

	// override only the first two makefiles values, leave the last value
	// unchanged.
	os.Setenv("AUTOMAKE_MAKEFILE_0_NAME", "Makefile")
	defer os.Unsetenv("AUTOMAKE_MAKEFILE_0_NAME")
	os.Setenv("AUTOMAKE_MAKEFILE_1_NAME", "lib/Makefile")
	defer os.Unsetenv("AUTOMAKE_MAKEFILE_1_NAME")

	p := NewParser("automake", []VersionedParseInfo{
		{
			Version:        "0.1",
			ParseAs:        reflect.TypeOf(config),
			ConversionFunc: identity,
		},
	})

	err := p.Parse([]byte(testConfig2), &config)
	c.Assert(err, check.IsNil)
	c.Assert(config, check.DeepEquals, expectedConfig)
}

func (suite *ParserSuite) TestParseImplicitMap(c *check.C) {
	config := localConfiguration{}

	os.Setenv("AUTOMAKE_EXTRA_OWNER", "build-team")
	defer os.Unsetenv("AUTOMAKE_EXTRA_OWNER")

	p := NewParser("automake", []VersionedParseInfo{
		{
			Version:        "0.1",
			ParseAs:        reflect.TypeOf(config),
			ConversionFunc: identity,
		},
	})

	err := p.Parse([]byte(testConfig), &config)
	c.Assert(err, check.IsNil)
	c.Assert(config.Extra, check.DeepEquals, map[string]interface{}{"owner": "build-team"})
}

func (suite *ParserSuite) TestParseUnsupportedVersion(c *check.C) {
	config := localConfiguration{}

	p := NewParser("automake", []VersionedParseInfo{
		{
			Version:        "0.1",
			ParseAs:        reflect.TypeOf(config),
			ConversionFunc: identity,
		},
	})

	err := p.Parse([]byte(`version: "0.2"`), &config)
	c.Assert(err, check.ErrorMatches, `unsupported version: "0.2"`)
}
