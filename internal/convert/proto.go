// Package convert maps domain entities to and from protobuf well-known types.
package convert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/and161185/charm/internal/model"
)

// --- helpers ---

// ts renders t in UTC RFC 3339; the zero time becomes null.
func ts(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return timestamppb.New(t).AsTime().Format(time.RFC3339Nano)
}

// plain turns arbitrary detail payloads into JSON-shaped values structpb accepts.
func plain(m map[string]any) (map[string]any, error) {
	if len(m) == 0 {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Int reads a numeric field, accepting numbers and numeric strings.
func Int(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return int64(k.NumberValue), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: not a number", key)
		}
		return n, nil
	case *structpb.Value_NullValue:
		return 0, nil
	default:
		return 0, fmt.Errorf("%s: not a number", key)
	}
}

// Str reads a string field; a missing field is empty.
func Str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// --- Log ---

// LogToStruct converts a log row into a Struct keyed by column names.
func LogToStruct(l model.Log) (*structpb.Struct, error) {
	m, err := logMap(l)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func logMap(l model.Log) (map[string]any, error) {
	detail, err := plain(l.Detail)
	if err != nil {
		return nil, fmt.Errorf("log %d detail: %w", l.ID, err)
	}
	return map[string]any{
		"id":              l.ID,
		"user_id":         l.UserID,
		"user_name":       l.UserName,
		"action":          l.Action,
		"object_type":     string(l.ObjectType),
		"object_id":       l.ObjectID,
		"object_name":     l.ObjectName,
		"sub_action":      l.SubAction,
		"sub_object_type": string(l.SubObjectType),
		"sub_object_id":   l.SubObjectID,
		"sub_object_name": l.SubObjectName,
		"success":         l.Success,
		"message":         l.Message,
		"detail":          detail,
		"date":            ts(l.Date),
	}, nil
}

// LogsToStruct wraps a log listing as {"logs": [...]}.
func LogsToStruct(logs []model.Log) (*structpb.Struct, error) {
	list := make([]any, 0, len(logs))
	for i, l := range logs {
		m, err := logMap(l)
		if err != nil {
			return nil, fmt.Errorf("logs[%d]: %w", i, err)
		}
		list = append(list, m)
	}
	return structpb.NewStruct(map[string]any{"logs": list})
}

// LogFromStruct is the inverse of LogToStruct.
func LogFromStruct(s *structpb.Struct) (model.Log, error) {
	if s == nil {
		return model.Log{}, fmt.Errorf("nil log")
	}
	l, err := model.NewLog(s.AsMap())
	if err != nil {
		return model.Log{}, err
	}
	return *l, nil
}

// LogsFromStruct is the inverse of LogsToStruct.
func LogsFromStruct(s *structpb.Struct) ([]model.Log, error) {
	items := s.GetFields()["logs"].GetListValue().GetValues()
	out := make([]model.Log, 0, len(items))
	for i, v := range items {
		l, err := LogFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("logs[%d]: %w", i, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// LogQueryFromStruct reads the optional filters of a log listing.
func LogQueryFromStruct(s *structpb.Struct) (model.LogQuery, error) {
	q := model.LogQuery{
		Action:     Str(s, "action"),
		ObjectType: model.ObjectType(Str(s, "object_type")),
	}
	var err error
	if q.ObjectID, err = Int(s, "object_id"); err != nil {
		return q, err
	}
	if q.UserID, err = Int(s, "user_id"); err != nil {
		return q, err
	}
	limit, err := Int(s, "limit")
	if err != nil {
		return q, err
	}
	offset, err := Int(s, "offset")
	if err != nil {
		return q, err
	}
	if limit < 0 || offset < 0 {
		return q, fmt.Errorf("limit and offset must not be negative")
	}
	q.Limit, q.Offset = int(limit), int(offset)
	return q, nil
}

// LogQueryToStruct is the inverse of LogQueryFromStruct; zero filters are omitted.
func LogQueryToStruct(q model.LogQuery) (*structpb.Struct, error) {
	m := map[string]any{}
	if q.Action != "" {
		m["action"] = q.Action
	}
	if q.ObjectType != "" {
		m["object_type"] = string(q.ObjectType)
	}
	if q.ObjectID > 0 {
		m["object_id"] = q.ObjectID
	}
	if q.UserID > 0 {
		m["user_id"] = q.UserID
	}
	if q.Limit > 0 {
		m["limit"] = q.Limit
	}
	if q.Offset > 0 {
		m["offset"] = q.Offset
	}
	return structpb.NewStruct(m)
}

// --- Post ---

// PostToStruct converts a post into a Struct keyed by column names.
// The post password is reduced to a has_password flag.
func PostToStruct(p model.Post) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"ID":                p.ID,
		"post_author":       p.Author,
		"post_date":         ts(p.Date),
		"post_date_gmt":     ts(p.DateGMT),
		"post_content":      p.Content,
		"post_title":        p.Title,
		"post_excerpt":      p.Excerpt,
		"post_status":       p.Status,
		"comment_status":    p.CommentStatus,
		"ping_status":       p.PingStatus,
		"has_password":      p.Password != "",
		"post_name":         p.Slug,
		"post_modified":     ts(p.Modified),
		"post_modified_gmt": ts(p.ModifiedGMT),
		"post_parent":       p.Parent,
		"guid":              p.GUID,
		"menu_order":        p.MenuOrder,
		"post_type":         p.Type,
		"post_mime_type":    p.MimeType,
		"comment_count":     p.CommentCount,
	})
}

// PostFromStruct loads the column-named fields of s into a post.
func PostFromStruct(s *structpb.Struct) (model.Post, error) {
	p, err := model.NewPost(s.AsMap())
	if err != nil {
		return model.Post{}, err
	}
	return *p, nil
}

// --- Auth ---

// TokensToStruct builds the login response.
func TokensToStruct(t model.Tokens, userID int64) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"access_token": t.AccessToken,
		"expires_at":   ts(t.ExpiresAt),
		"user_id":      userID,
	})
}

// TokensFromStruct reads a login response.
func TokensFromStruct(s *structpb.Struct) (model.Tokens, int64, error) {
	t := model.Tokens{AccessToken: Str(s, "access_token")}
	if t.AccessToken == "" {
		return t, 0, fmt.Errorf("missing access_token")
	}
	if raw := Str(s, "expires_at"); raw != "" {
		exp, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return t, 0, fmt.Errorf("expires_at: %w", err)
		}
		t.ExpiresAt = exp
	}
	id, err := Int(s, "user_id")
	return t, id, err
}
