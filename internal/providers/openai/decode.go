package openai

import (
	"encoding/json"
	"strings"

	"github.com/kFady/stereo-site-1/internal/domain/molecule"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Defensive field normalization
// ─────────────────────────────────────────────────────────────────────────────

// NormalizeField flattens a decoded JSON value into a string.  Models return
// fields sometimes as plain strings, sometimes wrapped in objects.  Precedence:
// nested "text", then "value", then "name", then the compact JSON encoding,
// then empty.  It never fails.
func NormalizeField(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]interface{}:
		for _, key := range []string{"text", "value", "name"} {
			if inner, ok := t[key]; ok {
				if s := NormalizeField(inner); s != "" {
					return s
				}
			}
		}
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// normalizeStringMap flattens a JSON object's values into strings, dropping
// entries that normalize to empty.
func normalizeStringMap(raw map[string]interface{}) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s := NormalizeField(v); s != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// stripFences removes a markdown code fence around a JSON body, a shape some
// models produce even under JSON response mode.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ─────────────────────────────────────────────────────────────────────────────
// Response decoding
// ─────────────────────────────────────────────────────────────────────────────

func decodeSearchResult(content string) (*chem.SearchResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return nil, errors.Malformed("provider response is not valid JSON").WithCause(err)
	}

	if errField := NormalizeField(raw["error"]); errField != "" {
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "provider found no matching compound").
			WithDetail(errField)
	}

	molBlock := NormalizeField(raw["mol_block"])
	if molBlock == "" {
		return nil, errors.Malformed("provider response is missing the structure payload")
	}
	mol, err := molecule.ParseMolBlock(molBlock)
	if err != nil {
		return nil, errors.Malformed("provider returned an unreadable structure").WithCause(err)
	}

	result := &chem.SearchResult{
		Molecule:   *mol,
		SMILES:     NormalizeField(raw["smiles"]),
		IUPACName:  NormalizeField(raw["iupac_name"]),
		CommonName: NormalizeField(raw["common_name"]),
		Formula:    NormalizeField(raw["formula"]),
		Source:     chem.SourceAI,
	}
	if result.SMILES == "" && result.IUPACName == "" && result.CommonName == "" {
		return nil, errors.Malformed("provider response carries no naming metadata")
	}
	return result, nil
}

func decodeAnalysisResult(content string) (*chem.AnalysisResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return nil, errors.Malformed("provider response is not valid JSON").WithCause(err)
	}

	result := &chem.AnalysisResult{
		Stereocenters: decodeStereocenters(raw["stereocenters"]),
		Geometries:    decodeGeometries(raw["geometries"]),
		Annotation:    NormalizeField(raw["annotation"]),
		SMILES:        NormalizeField(raw["smiles"]),
		Source:        chem.SourceAI,
	}

	if props, ok := raw["properties"].(map[string]interface{}); ok {
		result.Properties = normalizeStringMap(props)
	}
	if result.Properties == nil {
		result.Properties = map[string]string{}
	}

	if block := NormalizeField(raw["mol_block_3d"]); block != "" {
		// The 3D payload stays opaque; only fence-stripping and a counts-line
		// sanity check are applied.
		if clean, err := molecule.SanitizeMolBlock(block); err == nil {
			result.MolBlock3D = clean
		}
	}

	result.Isomers = decodeNamedStructures(raw["isomers"])
	result.Conformers = decodeNamedStructures(raw["conformers"])

	if len(result.Stereocenters) == 0 && len(result.Geometries) == 0 &&
		len(result.Properties) == 0 && result.Annotation == "" {
		return nil, errors.Malformed("provider analysis carries no usable fields")
	}
	return result, nil
}

func decodeStereocenters(v interface{}) map[string]chem.Stereocenter {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return map[string]chem.Stereocenter{}
	}
	out := make(map[string]chem.Stereocenter, len(obj))
	for id, entry := range obj {
		// Entries are either {"configuration","rationale"} objects or bare
		// configuration strings.
		if m, ok := entry.(map[string]interface{}); ok {
			sc := chem.Stereocenter{
				Configuration: NormalizeField(m["configuration"]),
				Rationale:     NormalizeField(m["rationale"]),
			}
			if sc.Configuration == "" {
				sc.Configuration = "undetermined"
			}
			out[id] = sc
			continue
		}
		if s := NormalizeField(entry); s != "" {
			out[id] = chem.Stereocenter{Configuration: s}
		}
	}
	return out
}

func decodeGeometries(v interface{}) map[string]chem.Geometry {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return map[string]chem.Geometry{}
	}
	out := make(map[string]chem.Geometry, len(obj))
	for id, entry := range obj {
		if m, ok := entry.(map[string]interface{}); ok {
			g := chem.Geometry{
				Shape:     NormalizeField(m["shape"]),
				Rationale: NormalizeField(m["rationale"]),
			}
			if g.Shape != "" {
				out[id] = g
			}
			continue
		}
		if s := NormalizeField(entry); s != "" {
			out[id] = chem.Geometry{Shape: s}
		}
	}
	return out
}

func decodeNamedStructures(v interface{}) []chem.NamedStructure {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []chem.NamedStructure
	for _, entry := range arr {
		switch t := entry.(type) {
		case map[string]interface{}:
			ns := chem.NamedStructure{
				Name:     NormalizeField(t["name"]),
				MolBlock: NormalizeField(t["mol_block"]),
			}
			if ns.Name != "" {
				out = append(out, ns)
			}
		default:
			if s := NormalizeField(entry); s != "" {
				out = append(out, chem.NamedStructure{Name: s})
			}
		}
	}
	return out
}
