package model

import "time"

// Log actions.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionTrash    = "trash"
	ActionRestore  = "restore"
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionLogout   = "logout"
)

// Log sub-actions for changes made to a related object.
const (
	SubActionAddMeta    = "add_meta"
	SubActionUpdateMeta = "update_meta"
	SubActionDeleteMeta = "delete_meta"
	SubActionAddTerm    = "add_term"
	SubActionRemoveTerm = "remove_term"
)

// Log is an audit record. It is written once and never updated afterwards.
type Log struct {
	ID            int64          `mapstructure:"id"`
	UserID        int64          `mapstructure:"user_id"`
	UserName      string         `mapstructure:"user_name"`
	Action        string         `mapstructure:"action"`
	ObjectType    ObjectType     `mapstructure:"object_type"`
	ObjectID      int64          `mapstructure:"object_id"`
	ObjectName    string         `mapstructure:"object_name"`
	SubAction     string         `mapstructure:"sub_action"`
	SubObjectType ObjectType     `mapstructure:"sub_object_type"`
	SubObjectID   int64          `mapstructure:"sub_object_id"`
	SubObjectName string         `mapstructure:"sub_object_name"`
	Success       bool           `mapstructure:"success"`
	Message       string         `mapstructure:"message"`
	Detail        map[string]any `mapstructure:"detail"`
	Date          time.Time      `mapstructure:"date"`
}

// Exists reports whether the record is stored.
func (l *Log) Exists() bool { return l != nil && l.ID > 0 }

// LogQuery filters a log listing. Results are newest first.
type LogQuery struct {
	Action     string
	ObjectType ObjectType
	ObjectID   int64
	UserID     int64
	Limit      int
	Offset     int
}
