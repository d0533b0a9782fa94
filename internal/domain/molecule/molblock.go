package molecule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// V2000 mol-block codec
// ─────────────────────────────────────────────────────────────────────────────
//
// Mol blocks are treated as an interchange payload: the editor encodes its
// graph for the 3D widget and for archival, and decodes blocks coming back
// from PubChem SDF records.  Only the connection table is interpreted;
// property blocks (M  CHG etc.) pass through untouched.

const molBlockProgram = "  stereo2d"

// EncodeMolBlock serializes a molecule to a V2000 connection table.  Model Y
// grows downward (screen convention); chemistry Y grows upward, so Y is
// negated on the way out.
func EncodeMolBlock(m *chem.Molecule, title string) string {
	var sb strings.Builder
	sb.WriteString(title + "\n")
	sb.WriteString(molBlockProgram + "\n")
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%3d%3d  0  0  0  0  0  0  0  0999 V2000\n",
		len(m.Atoms), len(m.Bonds)))

	index := make(map[string]int, len(m.Atoms))
	for i, a := range m.Atoms {
		index[a.ID] = i + 1
		sb.WriteString(fmt.Sprintf("%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n",
			a.X, -a.Y, 0.0, string(a.Element)))
	}
	for _, b := range m.Bonds {
		sb.WriteString(fmt.Sprintf("%3d%3d%3d  0\n",
			index[b.From], index[b.To], b.Order.Multiplicity()))
	}
	sb.WriteString("M  END\n")
	return sb.String()
}

// ParseMolBlock decodes the first connection table in a mol-block or SDF
// record into a molecule graph.  Column positions follow the V2000 fixed
// layout; short or garbled lines within the declared counts fail the parse.
func ParseMolBlock(block string) (*chem.Molecule, error) {
	clean, err := SanitizeMolBlock(block)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(clean, "\n")

	countsIdx := findCountsLine(lines)
	counts := lines[countsIdx]
	numAtoms := parseIntAt(counts, 0, 3)
	numBonds := parseIntAt(counts, 3, 6)
	body := lines[countsIdx+1:]

	mol := &chem.Molecule{
		Atoms: make([]chem.Atom, 0, numAtoms),
		Bonds: make([]chem.Bond, 0, numBonds),
	}

	for i := 0; i < numAtoms; i++ {
		l := body[i]
		if len(l) < 34 {
			return nil, errors.New(errors.ErrCodeMalformedMolBlock, "mol block atom line too short").
				WithDetail(l)
		}
		x, err1 := strconv.ParseFloat(strings.TrimSpace(l[0:10]), 64)
		y, err2 := strconv.ParseFloat(strings.TrimSpace(l[10:20]), 64)
		if err1 != nil || err2 != nil {
			return nil, errors.New(errors.ErrCodeMalformedMolBlock, "mol block atom coordinates unreadable").
				WithDetail(l)
		}
		mol.Atoms = append(mol.Atoms, chem.Atom{
			ID:      fmt.Sprintf("a%d", i+1),
			Element: chem.Element(strings.TrimSpace(l[31:34])),
			X:       x,
			Y:       -y,
		})
	}

	for i := 0; i < numBonds; i++ {
		l := body[numAtoms+i]
		if len(l) < 9 {
			return nil, errors.New(errors.ErrCodeMalformedMolBlock, "mol block bond line too short").
				WithDetail(l)
		}
		from := parseIntAt(l, 0, 3)
		to := parseIntAt(l, 3, 6)
		if from < 1 || from > numAtoms || to < 1 || to > numAtoms {
			return nil, errors.New(errors.ErrCodeMalformedMolBlock, "mol block bond references missing atom").
				WithDetail(l)
		}
		mol.Bonds = append(mol.Bonds, chem.Bond{
			ID:    fmt.Sprintf("b%d", i+1),
			From:  fmt.Sprintf("a%d", from),
			To:    fmt.Sprintf("a%d", to),
			Order: orderFromNumber(parseIntAt(l, 6, 9)),
		})
	}

	return mol, nil
}

// SanitizeMolBlock strips markdown code fences and surrounding noise from a
// payload and verifies the V2000 counts line is consistent with the block
// length.  The content beyond the counts line is not interpreted.
func SanitizeMolBlock(block string) (string, error) {
	s := strings.ReplaceAll(block, "\r\n", "\n")
	s = strings.TrimSpace(s)

	// AI responses sometimes wrap payloads in ``` fences, with or without a
	// language tag.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimRight(s, "\n ")
	}

	lines := strings.Split(s, "\n")
	idx := findCountsLine(lines)
	if idx < 0 {
		return "", errors.New(errors.ErrCodeMalformedMolBlock, "mol block has no V2000 counts line")
	}

	numAtoms := parseIntAt(lines[idx], 0, 3)
	numBonds := parseIntAt(lines[idx], 3, 6)
	if numAtoms <= 0 {
		return "", errors.New(errors.ErrCodeMalformedMolBlock, "mol block declares no atoms")
	}
	if len(lines)-idx-1 < numAtoms+numBonds {
		return "", errors.New(errors.ErrCodeMalformedMolBlock, "mol block shorter than declared counts")
	}
	return s, nil
}

func findCountsLine(lines []string) int {
	for i, l := range lines {
		if strings.Contains(l, "V2000") {
			return i
		}
	}
	return -1
}

func parseIntAt(s string, from, to int) int {
	if from >= len(s) {
		return 0
	}
	if to > len(s) {
		to = len(s)
	}
	n, _ := strconv.Atoi(strings.TrimSpace(s[from:to]))
	return n
}

// orderFromNumber maps MDL bond type codes to editor orders.  Aromatic (4)
// collapses to single; the editor has no aromatic bond type.
func orderFromNumber(n int) chem.BondOrder {
	switch n {
	case 2:
		return chem.BondDouble
	case 3:
		return chem.BondTriple
	default:
		return chem.BondSingle
	}
}
