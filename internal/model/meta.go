package model

// Meta is one row of an object's meta table.
type Meta struct {
	ID         int64      `mapstructure:"meta_id"`
	ObjectType ObjectType `mapstructure:"object_type"`
	ObjectID   int64      `mapstructure:"object_id"`
	Key        string     `mapstructure:"meta_key"`
	Value      any        `mapstructure:"meta_value"`

	// PrevValue is the value held before the last successful write.
	PrevValue any `mapstructure:"-"`
}

// Exists reports whether the meta row is stored.
func (m *Meta) Exists() bool { return m != nil && m.ID > 0 }

// MetaRow is the raw stored shape of a meta row.
type MetaRow struct {
	ID       int64
	ObjectID int64
	Key      string
	Value    string
}

// Decode turns a stored row into a Meta of type t.
func (r MetaRow) Decode(t ObjectType) Meta {
	return Meta{ID: r.ID, ObjectType: t, ObjectID: r.ObjectID, Key: r.Key, Value: UnserializeMeta(r.Value)}
}
