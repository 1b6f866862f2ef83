package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/feral-file/castindex/internal/config"
)

const (
	DEFAULT_MODEL    = "openai/gpt-4.1-mini"
	DEFAULT_BASE_URL = "https://openrouter.ai/api/v1"

	maxTokens = 512
)

// schemaDescription is the part of the schema the model may query
const schemaDescription = `
users(fid BIGINT PRIMARY KEY, username TEXT, display_name TEXT, bio TEXT, pfp_url TEXT,
      follower_count BIGINT, following_count BIGINT, verified BOOLEAN, address TEXT,
      location_id TEXT REFERENCES locations(place_id), registered_at BIGINT /* ms, -1 when unknown */,
      indexed_at BIGINT /* ms */)
locations(place_id TEXT PRIMARY KEY, description TEXT)
casts(hash TEXT PRIMARY KEY, thread_hash TEXT, parent_hash TEXT, text TEXT,
      timestamp BIGINT /* ms */, author_fid BIGINT REFERENCES users(fid))
reactions(hash TEXT PRIMARY KEY, reaction_type TEXT /* like | recast */, timestamp BIGINT /* ms */,
          reactor_fid BIGINT REFERENCES users(fid), target_hash TEXT REFERENCES casts(hash))
ens_data(address TEXT PRIMARY KEY, ens TEXT, url TEXT, github TEXT, twitter TEXT, telegram TEXT,
         email TEXT, discord TEXT)
eth_transactions(unique_id TEXT PRIMARY KEY, hash TEXT, timestamp BIGINT /* ms */, block_num BIGINT,
                 from_address TEXT, to_address TEXT, value DOUBLE, asset TEXT,
                 category TEXT /* external | internal | erc20 | erc721 | erc1155 | empty */,
                 erc721_token_id TEXT, token_id TEXT, contract_address TEXT)
erc1155_metadata(id BIGINT PRIMARY KEY, transaction_hash TEXT REFERENCES eth_transactions(hash),
                 token_id TEXT, value TEXT)
user_eth_transactions(id BIGINT PRIMARY KEY, fid BIGINT REFERENCES users(fid),
                      transaction_unique_id TEXT REFERENCES eth_transactions(unique_id))
`

// Translator turns questions into SQL and results into answers
type Translator interface {
	// Translate generates a single read-only statement answering question
	Translate(ctx context.Context, question string) (string, error)
	// Summarise answers question from the statement that ran and its rows encoded as JSON
	Summarise(ctx context.Context, question, sql, rowsJSON string) (string, error)
}

// LLMTranslator implements Translator with a chat model
type LLMTranslator struct {
	llm     llms.Model
	dialect string
}

// NewLLMTranslator creates a translator backed by an OpenAI compatible API
func NewLLMTranslator(cfg config.LLMConfig, dialect string) (*LLMTranslator, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = DEFAULT_MODEL
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DEFAULT_BASE_URL
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewTranslator(llm, dialect), nil
}

// NewTranslator creates a translator over an existing model
func NewTranslator(llm llms.Model, dialect string) *LLMTranslator {
	return &LLMTranslator{llm: llm, dialect: dialect}
}

// Translate generates a single read-only statement answering question
func (t *LLMTranslator) Translate(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`
You are an expert %s SQL generator.

Use ONLY the following tables:
%s

Rules:
- Return a single SELECT query.
- Do NOT include any explanation or comments, only the SQL.
- Timestamps are milliseconds since epoch.
- If the user asks for "top" or "most" of something, use ORDER BY ... DESC and LIMIT.
- Never modify data: no INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE.

User question:
%s
`, t.dialect, schemaDescription, question)

	resp, err := llms.GenerateFromSinglePrompt(ctx, t.llm, prompt, llms.WithMaxTokens(maxTokens))
	if err != nil {
		return "", fmt.Errorf("failed to generate SQL: %w", err)
	}

	sql := Sanitize(resp)
	if err := Validate(sql); err != nil {
		return "", err
	}
	return sql, nil
}

// Summarise answers question from the statement that ran and its rows
func (t *LLMTranslator) Summarise(ctx context.Context, question, sql, rowsJSON string) (string, error) {
	prompt := fmt.Sprintf(`
You are a helpful assistant analysing a social network and the on-chain activity of its users.

User question:
%s

SQL that was executed:
%s

Query results in JSON (array of objects, can be empty):
%s

Instructions:
- If the result set is empty, say that no data was found for the question.
- Otherwise, answer the question concisely using bullet points and short sentences.
- Do not restate the raw JSON.
`, question, sql, rowsJSON)

	resp, err := llms.GenerateFromSinglePrompt(ctx, t.llm, prompt, llms.WithMaxTokens(maxTokens))
	if err != nil {
		return "", fmt.Errorf("failed to summarise result: %w", err)
	}
	return strings.TrimSpace(resp), nil
}
