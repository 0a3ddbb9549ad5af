package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"powersearch/models"
	"powersearch/utils"
)

const rewritePrompt = `You are a shopping assistant. Convert the user's natural language shopping query
into effective store search terms: keep the product name and important specifications, remove filler
words and correct spelling mistakes.

Respond with a single JSON object and nothing else:
{"query": "<search terms>", "brands": ["..."], "attributes": ["..."], "categories": ["..."]}`

// QueryRewriter turns a free-text query into store search terms plus hints.
// Any model failure passes the original query through unchanged.
type QueryRewriter struct {
	chat   model.BaseChatModel
	logger *utils.Logger
}

// NewQueryRewriter creates a QueryRewriter. chat may be nil to disable rewriting.
func NewQueryRewriter(chat model.BaseChatModel, logger *utils.Logger) *QueryRewriter {
	return &QueryRewriter{chat: chat, logger: logger}
}

type rewriteReply struct {
	Query      string   `json:"query"`
	Brands     []string `json:"brands"`
	Attributes []string `json:"attributes"`
	Categories []string `json:"categories"`
}

// Prepare returns the query to send to the stores.
func (r *QueryRewriter) Prepare(ctx context.Context, query string) models.PreparedQuery {
	prepared := models.PreparedQuery{Original: query, Rewritten: query}
	if r == nil || r.chat == nil {
		return prepared
	}

	msg, err := r.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(rewritePrompt),
		schema.UserMessage(query),
	})
	if err != nil || msg == nil {
		r.logger.Warn("[rewrite] Query rewrite failed, using original query: %v", err)
		return prepared
	}

	content := strings.TrimSpace(msg.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var reply rewriteReply
	if strings.HasPrefix(content, "{") {
		if err := json.Unmarshal([]byte(content), &reply); err != nil {
			r.logger.Warn("[rewrite] Unparseable model reply, using original query: %v", err)
			return prepared
		}
	} else {
		reply.Query = content
	}

	if q := strings.TrimSpace(reply.Query); q != "" {
		prepared.Rewritten = q
	}
	prepared.Hints = models.QueryHints{
		Brands:     reply.Brands,
		Attributes: reply.Attributes,
		Categories: reply.Categories,
	}
	r.logger.Info("[rewrite] %q → %q", query, prepared.Rewritten)
	return prepared
}
