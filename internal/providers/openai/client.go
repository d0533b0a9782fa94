// Package openai implements the primary provider on an OpenAI-compatible
// chat-completions API.  Responses are requested as strict JSON and decoded
// defensively: the model does not always honor the shape, so every field
// passes through NormalizeField before use.
package openai

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// chatAPI is the slice of the SDK the client uses, extracted for tests.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client is the primary provider implementation.
type Client struct {
	api    chatAPI
	model  string
	logger logging.Logger
}

// NewClient builds a provider client from configuration.  BaseURL may point
// at any OpenAI-compatible endpoint.
func NewClient(cfg config.ProviderConfig, log logging.Logger) *Client {
	sdkCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkCfg.BaseURL = cfg.BaseURL
	}
	if cfg.RequestTimeout > 0 {
		sdkCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{
		api:    openai.NewClientWithConfig(sdkCfg),
		model:  cfg.Model,
		logger: log,
	}
}

// NewClientWithAPI wraps an existing chat API (used by tests).
func NewClientWithAPI(api chatAPI, model string, log logging.Logger) *Client {
	return &Client{api: api, model: model, logger: log}
}

const resolveSystemPrompt = `You are a chemistry resolver. Given a chemical name or SMILES string,
respond with a single JSON object and nothing else:
{
  "smiles": "...",
  "iupac_name": "...",
  "common_name": "...",
  "formula": "...",
  "mol_block": "V2000 connection table with 2D coordinates"
}
If the input names no known compound, respond {"error": "not_found"}.`

const analyzeSystemPrompt = `You are a stereochemistry analyst. Given a molecule as a V2000
connection table, respond with a single JSON object and nothing else:
{
  "smiles": "...",
  "stereocenters": {"<atom index>": {"configuration": "R|S|undetermined", "rationale": "..."}},
  "geometries": {"<atom index>": {"shape": "...", "rationale": "..."}},
  "properties": {"molecular_weight": "...", "boiling_point": "...", "...": "..."},
  "mol_block_3d": "V2000 connection table with 3D coordinates",
  "isomers": [{"name": "...", "mol_block": "..."}],
  "conformers": [{"name": "...", "mol_block": "..."}],
  "annotation": "one-paragraph summary"
}`

// ResolveQuery asks the model to resolve a name or SMILES into a structure.
func (c *Client) ResolveQuery(ctx context.Context, query string) (*chem.SearchResult, error) {
	content, err := c.complete(ctx, resolveSystemPrompt, query)
	if err != nil {
		return nil, err
	}
	result, err := decodeSearchResult(content)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("provider resolved query",
		logging.String("query", query),
		logging.String("smiles", result.SMILES),
	)
	return result, nil
}

// AnalyzeStructure asks the model for a deep analysis of a drawn molecule.
func (c *Client) AnalyzeStructure(ctx context.Context, mol *chem.Molecule) (*chem.AnalysisResult, error) {
	content, err := c.complete(ctx, analyzeSystemPrompt, describeMolecule(mol))
	if err != nil {
		return nil, err
	}
	result, err := decodeAnalysisResult(content)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("provider analyzed structure",
		logging.Int("stereocenters", len(result.Stereocenters)),
		logging.Int("properties", len(result.Properties)),
	)
	return result, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyTransportError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Malformed("provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// describeMolecule serializes the graph as the prompt payload: an atom list
// plus a bond table, compact enough for a context window and unambiguous.
func describeMolecule(m *chem.Molecule) string {
	var sb strings.Builder
	sb.WriteString("Atoms (index element x y charge):\n")
	for i, a := range m.Atoms {
		fmt.Fprintf(&sb, "%d %s %.1f %.1f %d\n", i+1, a.Element, a.X, a.Y, a.Charge)
	}
	index := make(map[string]int, len(m.Atoms))
	for i, a := range m.Atoms {
		index[a.ID] = i + 1
	}
	sb.WriteString("Bonds (from to order):\n")
	for _, b := range m.Bonds {
		fmt.Fprintf(&sb, "%d %d %d\n", index[b.From], index[b.To], b.Order.Multiplicity())
	}
	return sb.String()
}

// classifyTransportError maps SDK errors onto the provider error taxonomy.
// Rate limits are detected by status code and, failing that, by message
// sniffing — some compatible backends return 400s with a rate-limit text.
func classifyTransportError(err error) error {
	var apiErr *openai.APIError
	if goerrors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return errors.RateLimit("provider rate limit exceeded").WithCause(err)
		case mentionsRateLimit(apiErr.Message):
			return errors.RateLimit("provider rate limit exceeded").WithCause(err)
		case apiErr.HTTPStatusCode >= 500:
			return errors.Unavailable("provider returned a server error").WithCause(err)
		default:
			return errors.Unavailable("provider rejected the request").WithCause(err)
		}
	}
	if mentionsRateLimit(err.Error()) {
		return errors.RateLimit("provider rate limit exceeded").WithCause(err)
	}
	return errors.Unavailable("provider is unreachable").WithCause(err)
}

func mentionsRateLimit(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "too many requests") || strings.Contains(lower, "quota")
}
