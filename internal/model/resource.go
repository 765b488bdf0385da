package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Resource は学習リソースを表す。このサービスからは読み取り専用。
type Resource struct {
	ID          ResourceID `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	FileURL     string     `json:"file_url"`
	Keywords    []string   `json:"keywords"`
}

// ResourceID はリソースのID。
// resourcesテーブルのid列は数値・文字列のどちらの型もあり得るため、
// 取得時のJSON表現を保持し、応答には同じ型のまま出力する。
type ResourceID struct {
	raw json.RawMessage
}

// StringResourceID は文字列IDのResourceIDを生成する。
func StringResourceID(s string) ResourceID {
	b, _ := json.Marshal(s)
	return ResourceID{raw: b}
}

// NumericResourceID は整数IDのResourceIDを生成する。
func NumericResourceID(n int64) ResourceID {
	return ResourceID{raw: json.RawMessage(strconv.FormatInt(n, 10))}
}

// String はIDの文字列表現を返す。文字列IDは引用符を外した値になる。
func (id ResourceID) String() string {
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(id.raw)
}

// IsNumeric はIDが数値として保持されている場合にtrueを返す。
func (id ResourceID) IsNumeric() bool {
	return len(id.raw) > 0 && id.raw[0] != '"' && !bytes.Equal(id.raw, []byte("null"))
}

// MarshalJSON は保持しているJSON表現をそのまま返す。未設定の場合はnull。
func (id ResourceID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON は数値または文字列のIDを受け付ける。
func (id *ResourceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ResourceID{}
		return nil
	}
	switch c := data[0]; {
	case c == '"':
	case c == '-' || (c >= '0' && c <= '9'):
	default:
		return fmt.Errorf("resource id must be a number or string: %s", data)
	}
	id.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Scan はdatabase/sqlの列値からResourceIDを設定する。
func (id *ResourceID) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*id = NumericResourceID(v)
	case string:
		*id = StringResourceID(v)
	case []byte:
		*id = StringResourceID(string(v))
	case nil:
		*id = ResourceID{}
	default:
		return fmt.Errorf("unsupported resource id type %T", src)
	}
	return nil
}

// QueryRecord は質問と回答の記録。1回の質問につき1件作成され、更新・削除はしない。
type QueryRecord struct {
	ID                string
	UserID            string
	QueryText         string
	ResponseText      string
	ResourcesReturned []*Resource
	CreatedAt         time.Time
}

// ResourcesJSON はResourcesReturnedをjsonb列へ格納するためのJSONに変換する。
// nilの場合は空配列として扱う。
func (q *QueryRecord) ResourcesJSON() ([]byte, error) {
	if q.ResourcesReturned == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(q.ResourcesReturned)
}
