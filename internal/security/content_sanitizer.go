// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizer は学習リソースの説明文に含まれるHTMLを
// 許可リストベースでサニタイズし、/ask-jijiの応答からXSSの危険を取り除く。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizer はHTMLサニタイズのインターフェース。
type DescriptionSanitizer interface {
	// Sanitize は許可タグのみを残した安全なHTMLを返す。
	// タグを含まないプレーンテキストはエスケープせずそのまま返す。
	// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// contentSanitizer はDescriptionSanitizerの実装。
// bluemondayのポリシーは並行利用に対して安全。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はリソース説明文向けのサニタイザーを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em
//   - aタグ: href属性のみ。http/https/mailtoスキーム、相対URLは不許可
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// script, iframe, style, imgは許可リストに含めないことで除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	if !containsMarkup(rawHTML) {
		return rawHTML
	}
	return s.policy.Sanitize(rawHTML)
}

// containsMarkup はタグ・コメント・宣言の開始となる "<" の出現を判定する。
// "<" の直後が英字、"/"、"!"、"?" 以外であれば、HTMLパーサーもテキストとして扱う。
func containsMarkup(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] != '<' {
			continue
		}
		c := s[i+1]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '/' || c == '!' || c == '?' {
			return true
		}
	}
	return false
}
