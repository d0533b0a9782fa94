package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

func TestNormalizeField_Precedence(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want string
	}{
		{"plain string", "ethanol", "ethanol"},
		{"nested text", map[string]interface{}{"text": "ethanol"}, "ethanol"},
		{"nested value", map[string]interface{}{"value": "78.4"}, "78.4"},
		{"nested name", map[string]interface{}{"name": "ethanol"}, "ethanol"},
		{"text beats value", map[string]interface{}{"text": "a", "value": "b"}, "a"},
		{"empty text falls through", map[string]interface{}{"text": "", "value": "b"}, "b"},
		{"deep nesting", map[string]interface{}{"text": map[string]interface{}{"value": "x"}}, "x"},
		{"number stringified", 78.4, "78.4"},
		{"bool stringified", true, "true"},
		{"nil is empty", nil, ""},
		{"opaque object stringified", map[string]interface{}{"k": "v"}, `{"k":"v"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeField(tc.in))
		})
	}
}

const validMolBlockJSON = `  2  1  0  0  0  0  0  0  0  0999 V2000\n    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0\n    1.0000    0.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0\n  1  2  1  0\nM  END`

func resolveContent(extra string) string {
	return `{"smiles":"CO","iupac_name":"methanol","common_name":"methanol","formula":"CH4O","mol_block":"x\nprog\n\n` + validMolBlockJSON + `"` + extra + `}`
}

func TestDecodeSearchResult_HappyPath(t *testing.T) {
	got, err := decodeSearchResult(resolveContent(""))
	require.NoError(t, err)
	assert.Equal(t, "CO", got.SMILES)
	assert.Equal(t, "methanol", got.IUPACName)
	assert.Equal(t, chem.SourceAI, got.Source)
	assert.Len(t, got.Molecule.Atoms, 2)
	assert.Len(t, got.Molecule.Bonds, 1)
	assert.False(t, got.Degraded)
}

func TestDecodeSearchResult_FencedJSON(t *testing.T) {
	got, err := decodeSearchResult("```json\n" + resolveContent("") + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "CO", got.SMILES)
}

func TestDecodeSearchResult_ErrorField(t *testing.T) {
	_, err := decodeSearchResult(`{"error":"not_found"}`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCompoundNotFound))
}

func TestDecodeSearchResult_MalformedCases(t *testing.T) {
	cases := map[string]string{
		"not json":       "the structure is ethanol",
		"missing block":  `{"smiles":"CO"}`,
		"garbage block":  `{"smiles":"CO","mol_block":"not a mol block"}`,
		"no naming data": `{"mol_block":"x\nprog\n\n` + validMolBlockJSON + `"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeSearchResult(content)
			assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedResponse))
		})
	}
}

func TestDecodeAnalysisResult_HappyPath(t *testing.T) {
	content := `{
		"smiles": "C(C(=O)O)N",
		"stereocenters": {"2": {"configuration": "S", "rationale": "CIP priority"}},
		"geometries": {"1": {"shape": "tetrahedral", "rationale": "four domains"}},
		"properties": {"molecular_weight": 75.07, "state": "solid"},
		"annotation": "glycine-like"
	}`
	got, err := decodeAnalysisResult(content)
	require.NoError(t, err)
	assert.Equal(t, "S", got.Stereocenters["2"].Configuration)
	assert.Equal(t, "tetrahedral", got.Geometries["1"].Shape)
	assert.Equal(t, "75.07", got.Properties["molecular_weight"])
	assert.Equal(t, chem.SourceAI, got.Source)
}

func TestDecodeAnalysisResult_BareStereoStrings(t *testing.T) {
	got, err := decodeAnalysisResult(`{"stereocenters":{"1":"R"},"properties":{"x":"y"}}`)
	require.NoError(t, err)
	assert.Equal(t, "R", got.Stereocenters["1"].Configuration)
}

func TestDecodeAnalysisResult_DropsBad3DPayloadSilently(t *testing.T) {
	got, err := decodeAnalysisResult(`{"annotation":"ok","mol_block_3d":"garbage"}`)
	require.NoError(t, err)
	assert.Empty(t, got.MolBlock3D)
}

func TestDecodeAnalysisResult_EmptyIsMalformed(t *testing.T) {
	_, err := decodeAnalysisResult(`{}`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedResponse))
}

func TestDecodeAnalysisResult_NamedStructures(t *testing.T) {
	content := `{
		"annotation": "x",
		"isomers": [{"name": "dimethyl ether", "mol_block": ""}, "ethanol"],
		"conformers": [{"name": "anti"}]
	}`
	got, err := decodeAnalysisResult(content)
	require.NoError(t, err)
	require.Len(t, got.Isomers, 2)
	assert.Equal(t, "dimethyl ether", got.Isomers[0].Name)
	assert.Equal(t, "ethanol", got.Isomers[1].Name)
	require.Len(t, got.Conformers, 1)
}
