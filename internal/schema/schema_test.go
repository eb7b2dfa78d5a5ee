package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	builderrors "git.home.luguber.info/inful/colldocs/internal/errors"
)

func decode(t *testing.T, src string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(src), &raw))
	return raw
}

func TestValidateDocBlock_Minimal(t *testing.T) {
	raw := decode(t, `
short_description: Manage widgets
`)
	block, err := ValidateDocBlock(raw)
	require.NoError(t, err)
	require.Equal(t, "Manage widgets", block.ShortDescription)
	require.Nil(t, block.Options)
	require.False(t, block.Private)
}

func TestValidateDocBlock_MissingShortDescription(t *testing.T) {
	raw := decode(t, `
description: no short description here
`)
	_, err := ValidateDocBlock(raw)
	require.Error(t, err)
	be, ok := err.(*builderrors.BuildError)
	require.True(t, ok)
	require.Equal(t, builderrors.CategoryValidation, be.Category)
	require.Equal(t, "short_description", be.FieldPath)
}

func TestValidateDocBlock_UnknownKey(t *testing.T) {
	raw := decode(t, `
short_description: x
shortdescription: typo
`)
	_, err := ValidateDocBlock(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown key "shortdescription"`)
}

func TestValidateDocBlock_ScalarOrListNormalization(t *testing.T) {
	raw := decode(t, `
short_description: x
description: single paragraph
author:
  - First Author
  - Second Author
`)
	block, err := ValidateDocBlock(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"single paragraph"}, block.Description)
	require.Equal(t, []string{"First Author", "Second Author"}, block.Author)
}

func TestValidateDocBlock_Deprecation(t *testing.T) {
	raw := decode(t, `
short_description: x
deprecated:
  alternative: ns.coll.newer
  removed_in: "4.0.0"
  why: superseded
`)
	block, err := ValidateDocBlock(raw)
	require.NoError(t, err)
	require.NotNil(t, block.Deprecated)
	require.Equal(t, "ns.coll.newer", block.Deprecated.Alternative)
	require.Equal(t, "4.0.0", block.Deprecated.RemovedIn)
}

func TestValidateOption_Defaults(t *testing.T) {
	spec, err := ValidateOption(decode(t, `
description: a plain option
`), "options.name")
	require.NoError(t, err)
	require.Equal(t, "str", spec.Type)
	require.False(t, spec.Required)
	require.False(t, spec.AllowsNesting())
}

func TestValidateOption_WrongScalarType(t *testing.T) {
	_, err := ValidateOption(decode(t, `
required: "yes please"
`), "options.name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "options.name.required")
	require.Contains(t, err.Error(), "expected bool")
}

func TestValidateOption_SuboptionsRequireMappingType(t *testing.T) {
	_, err := ValidateOption(decode(t, `
type: str
suboptions:
  inner:
    type: str
`), "options.outer")
	require.Error(t, err)
	require.Contains(t, err.Error(), "options.outer.suboptions")
	require.Contains(t, err.Error(), `not permitted on type "str"`)
}

func TestValidateOption_NestedSuboptions(t *testing.T) {
	spec, err := ValidateOption(decode(t, `
type: dict
suboptions:
  inner:
    type: list
    elements: dict
    suboptions:
      leaf:
        type: int
`), "options.outer")
	require.NoError(t, err)
	require.True(t, spec.AllowsNesting())
	inner := spec.Suboptions["inner"]
	require.NotNil(t, inner)
	require.True(t, inner.AllowsNesting())
	require.Equal(t, "int", inner.Suboptions["leaf"].Type)
}

func TestValidateOption_MalformedAliasList(t *testing.T) {
	_, err := ValidateOption(decode(t, `
aliases:
  - ok
  - 42
`), "options.name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed alias list")
}

func TestValidateOption_AliasScalarRejected(t *testing.T) {
	_, err := ValidateOption(decode(t, `
aliases: notalist
`), "options.name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed alias list")
}

func TestValidateReturnBlock(t *testing.T) {
	specs, err := ValidateReturnBlock(decode(t, `
result:
  type: complex
  returned: success
  contains:
    id:
      type: str
      sample: abc123
`), "")
	require.NoError(t, err)
	result := specs["result"]
	require.NotNil(t, result)
	require.True(t, result.AllowsNesting())
	require.Equal(t, "success", result.Returned)
	require.Equal(t, "abc123", result.Contains["id"].Sample)
}

func TestValidateReturnBlock_ContainsOnScalar(t *testing.T) {
	_, err := ValidateReturnBlock(decode(t, `
count:
  type: int
  contains:
    x:
      type: str
`), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "count.contains")
}

func TestValidateArgumentSpec(t *testing.T) {
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(`
argument_specs:
  main:
    short_description: Configure the widget service
    options:
      state:
        type: str
        choices: [present, absent]
  alternate:
    short_description: Secondary entry point
`), &raw))

	spec, err := ValidateArgumentSpec(raw["argument_specs"])
	require.NoError(t, err)
	require.Len(t, spec.EntryPoints, 2)
	main := spec.EntryPoints["main"]
	require.Equal(t, "Configure the widget service", main.ShortDescription)
	require.Len(t, main.Options["state"].Choices, 2)
}

func TestValidateDocBlock_NonMappingOptions(t *testing.T) {
	raw := decode(t, `
short_description: x
options: just a string
`)
	_, err := ValidateDocBlock(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "options")
	require.Contains(t, err.Error(), "expected mapping")
}
