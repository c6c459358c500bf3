package model

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DateTimeLayout is the column format used by the posts and users tables.
const DateTimeLayout = "2006-01-02 15:04:05"

// Load copies the whitelisted fields present in fields into dst.
// Field names are the column names carried in mapstructure tags; anything else
// is ignored. Values are weakly typed, so "5" loads into an int64.
func Load(fields map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		DecodeHook:       stringToTimeHook,
	})
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := dec.Decode(fields); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// stringToTimeHook accepts both the column layout and RFC 3339.
func stringToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from == nil || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if s == "" || s == "0000-00-00 00:00:00" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// NewPost builds an unsaved post from column-named fields.
func NewPost(fields map[string]any) (*Post, error) {
	p := &Post{}
	if err := Load(fields, p); err != nil {
		return nil, err
	}
	return p, nil
}

// NewUser builds a user from column-named fields; "user_pass" is the plaintext password.
func NewUser(fields map[string]any) (*User, error) {
	u := &User{}
	if err := Load(fields, u); err != nil {
		return nil, err
	}
	return u, nil
}

// NewTerm builds a term from column-named fields.
func NewTerm(fields map[string]any) (*Term, error) {
	t := &Term{}
	if err := Load(fields, t); err != nil {
		return nil, err
	}
	return t, nil
}

// NewSite builds a site from column-named fields.
func NewSite(fields map[string]any) (*Site, error) {
	s := &Site{}
	if err := Load(fields, s); err != nil {
		return nil, err
	}
	return s, nil
}

// NewNetwork builds a network from column-named fields.
func NewNetwork(fields map[string]any) (*Network, error) {
	n := &Network{}
	if err := Load(fields, n); err != nil {
		return nil, err
	}
	return n, nil
}

// NewLog builds a log record from column-named fields.
func NewLog(fields map[string]any) (*Log, error) {
	l := &Log{}
	if err := Load(fields, l); err != nil {
		return nil, err
	}
	return l, nil
}
