package ask

import (
	"fmt"
	"strings"

	"github.com/hitoshi/jiji/internal/model"
)

const (
	ragAnswer = "RAG (Retrieval Augmented Generation) is a technique that enhances AI responses by retrieving relevant information from a knowledge base before generating an answer. It combines the power of large language models with external data sources to provide more accurate and contextual responses."

	promptAnswer = "Prompt engineering is the practice of designing and refining inputs to AI models to get desired outputs. It involves crafting clear, specific instructions that guide the AI to produce relevant and accurate responses."

	aiAnswer = "Artificial Intelligence (AI) refers to computer systems that can perform tasks typically requiring human intelligence, such as learning, reasoning, problem-solving, and understanding language. Modern AI includes machine learning, deep learning, and neural networks."

	resourcesFoundFormat = "I found %d relevant learning resource(s) related to \"%s\". These materials will help you understand the topic better. Check out the resources below for detailed information."

	fallbackFormat = "Thank you for your question about \"%s\". While I don't have specific resources on this exact topic right now, I'm here to help you learn. Try asking about RAG, AI fundamentals, or prompt engineering."
)

// minKeywordRunes より長いトークンのみをキーワードとして扱う。
const minKeywordRunes = 2

// Keywords は質問文を小文字化して空白で分割し、3文字以上のトークンを返す。
// 重複は除去しない。
func Keywords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > minKeywordRunes {
			keywords = append(keywords, f)
		}
	}
	return keywords
}

// SelectResponse は質問文と検索結果から定型の回答文を選ぶ。
// 判定は小文字化した質問文に対して rag, prompt, ai の順に部分一致で行い、
// いずれにも該当しなければリソース件数に応じた文面を返す。
// 回答文中の質問文は元の大文字小文字のまま埋め込む。
func SelectResponse(query string, resources []*model.Resource) string {
	lower := strings.ToLower(query)

	switch {
	case strings.Contains(lower, "rag"):
		return ragAnswer
	case strings.Contains(lower, "prompt"):
		return promptAnswer
	case strings.Contains(lower, "ai") || strings.Contains(lower, "artificial intelligence"):
		return aiAnswer
	case len(resources) > 0:
		return fmt.Sprintf(resourcesFoundFormat, len(resources), query)
	default:
		return fmt.Sprintf(fallbackFormat, query)
	}
}
