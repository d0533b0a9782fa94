// Package pubchem implements the secondary provider on the PubChem PUG REST
// API.  Every lookup is an independent GET that may 404 on its own; the
// client tries alternate lookup paths (name, then SMILES) before giving up.
// Requests are throttled client-side to stay inside PubChem's published
// request budget.
package pubchem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/domain/molecule"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

const propertyList = "MolecularFormula,MolecularWeight,IUPACName,CanonicalSMILES,IsomericSMILES,XLogP,TPSA,HBondDonorCount,HBondAcceptorCount,Charge"

// Client is the PubChem PUG REST client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rateLimiter
	logger     logging.Logger
}

// NewClient builds a throttled PubChem client from configuration.
func NewClient(cfg config.PubChemConfig, log logging.Logger) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    newRateLimiter(rps),
		logger:     log,
	}
}

// Close releases the limiter's refill goroutine.
func (c *Client) Close() {
	c.limiter.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// High-level provider operations
// ─────────────────────────────────────────────────────────────────────────────

// ResolveQuery resolves a free-text query: name lookup first, then the raw
// query as a SMILES string.  The 2D record is fetched and parsed into a
// drawable molecule graph.
func (c *Client) ResolveQuery(ctx context.Context, query string) (*chem.SearchResult, error) {
	cid, err := c.CIDByName(ctx, query)
	if errors.IsNotFound(err) {
		cid, err = c.CIDBySMILES(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	props, err := c.PropertiesByCID(ctx, cid)
	if err != nil {
		return nil, err
	}

	sdf, err := c.SDFByCID(ctx, cid, false)
	if err != nil {
		return nil, err
	}
	mol, err := molecule.ParseMolBlock(sdf)
	if err != nil {
		return nil, errors.Malformed("pubchem returned an unreadable record").WithCause(err)
	}

	return &chem.SearchResult{
		Molecule:   *mol,
		SMILES:     firstNonEmpty(props["CanonicalSMILES"], props["IsomericSMILES"]),
		IUPACName:  props["IUPACName"],
		CommonName: query,
		Formula:    props["MolecularFormula"],
		CID:        cid,
		Source:     chem.SourcePubChem,
	}, nil
}

// FetchProperties returns baseline physical properties for a reference,
// resolving a CID from whichever identifier the reference carries.
func (c *Client) FetchProperties(ctx context.Context, ref chem.Reference) (map[string]string, error) {
	cid, err := c.resolveReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.PropertiesByCID(ctx, cid)
}

// FetchMolBlock3D returns the 3D conformer record for a reference.
func (c *Client) FetchMolBlock3D(ctx context.Context, ref chem.Reference) (string, error) {
	cid, err := c.resolveReference(ctx, ref)
	if err != nil {
		return "", err
	}
	return c.SDFByCID(ctx, cid, true)
}

func (c *Client) resolveReference(ctx context.Context, ref chem.Reference) (int64, error) {
	if ref.CID != 0 {
		return ref.CID, nil
	}
	if ref.Name != "" {
		cid, err := c.CIDByName(ctx, ref.Name)
		if err == nil {
			return cid, nil
		}
		if !errors.IsNotFound(err) {
			return 0, err
		}
	}
	if ref.SMILES != "" {
		return c.CIDBySMILES(ctx, ref.SMILES)
	}
	return 0, errors.New(errors.ErrCodeCompoundNotFound, "reference matches no compound")
}

// ─────────────────────────────────────────────────────────────────────────────
// PUG REST endpoints
// ─────────────────────────────────────────────────────────────────────────────

type identifierList struct {
	IdentifierList struct {
		CID []int64 `json:"CID"`
	} `json:"IdentifierList"`
}

// CIDByName resolves a compound name to its first PubChem CID.
func (c *Client) CIDByName(ctx context.Context, name string) (int64, error) {
	return c.fetchCID(ctx, fmt.Sprintf("%s/compound/name/%s/cids/JSON",
		c.baseURL, url.PathEscape(strings.TrimSpace(name))))
}

// CIDBySMILES resolves a SMILES string to its first PubChem CID.
func (c *Client) CIDBySMILES(ctx context.Context, smiles string) (int64, error) {
	return c.fetchCID(ctx, fmt.Sprintf("%s/compound/smiles/%s/cids/JSON",
		c.baseURL, url.PathEscape(strings.TrimSpace(smiles))))
}

func (c *Client) fetchCID(ctx context.Context, u string) (int64, error) {
	body, err := c.get(ctx, u)
	if err != nil {
		return 0, err
	}
	var list identifierList
	if err := json.Unmarshal(body, &list); err != nil {
		return 0, errors.Malformed("pubchem CID response is not valid JSON").WithCause(err)
	}
	if len(list.IdentifierList.CID) == 0 {
		return 0, errors.New(errors.ErrCodeCompoundNotFound, "compound not found in pubchem")
	}
	return list.IdentifierList.CID[0], nil
}

type propertyTable struct {
	PropertyTable struct {
		Properties []map[string]interface{} `json:"Properties"`
	} `json:"PropertyTable"`
}

// PropertiesByCID fetches the standard property set for a CID as a flat
// string map.
func (c *Client) PropertiesByCID(ctx context.Context, cid int64) (map[string]string, error) {
	u := fmt.Sprintf("%s/compound/cid/%d/property/%s/JSON", c.baseURL, cid, propertyList)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var table propertyTable
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, errors.Malformed("pubchem property response is not valid JSON").WithCause(err)
	}
	if len(table.PropertyTable.Properties) == 0 {
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "compound has no property record")
	}

	out := make(map[string]string)
	for k, v := range table.PropertyTable.Properties[0] {
		if k == "CID" {
			continue
		}
		out[k] = stringifyProperty(v)
	}
	return out, nil
}

// SDFByCID fetches the SDF record for a CID.  record3D selects the computed
// 3D conformer; PubChem has no 3D record for some compounds, which surfaces
// as a 404.
func (c *Client) SDFByCID(ctx context.Context, cid int64, record3D bool) (string, error) {
	u := fmt.Sprintf("%s/compound/cid/%d/SDF", c.baseURL, cid)
	if record3D {
		u += "?record_type=3d"
	}
	body, err := c.get(ctx, u)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderUnavailable, "pubchem request throttled out")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "pubchem: failed to build request")
	}
	req.Header.Set("Accept", "application/json, chemical/x-mdl-sdfile, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Unavailable("pubchem is unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Unavailable("pubchem response read failed").WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "compound not found in pubchem")
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode >= 500:
		return nil, errors.Unavailable("pubchem returned a server error").
			WithDetail(strconv.Itoa(resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		// PubChem throttling is treated as unavailability: the fallback path
		// never retries.
		return nil, errors.Unavailable("pubchem request budget exceeded")
	default:
		return nil, errors.Unavailable("pubchem rejected the request").
			WithDetail(strconv.Itoa(resp.StatusCode))
	}
}

func stringifyProperty(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
