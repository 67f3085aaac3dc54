package datamodel

import (
	"fmt"
	"maps"

	"github.com/goccy/go-json"
)

// Record is one collection entry: flat string properties plus, for
// interactions, the nested objectives and correct_responses lists.
//
// It marshals to a single JSON object where nested lists are arrays of
// string maps:
//
//	{"id":"q1","type":"choice","objectives":[{"id":"obj-1"}]}
type Record struct {
	Fields map[string]string
	Lists  map[string][]map[string]string
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{Fields: map[string]string{}}
}

// Get returns a flat property.
func (r Record) Get(property string) (string, bool) {
	v, ok := r.Fields[property]
	return v, ok
}

// ListLen returns the length of a nested list.
func (r Record) ListLen(list string) int {
	return len(r.Lists[list])
}

// Clone deep-copies the record.
func (r Record) Clone() Record {
	out := Record{Fields: maps.Clone(r.Fields)}
	if out.Fields == nil {
		out.Fields = map[string]string{}
	}
	if len(r.Lists) > 0 {
		out.Lists = make(map[string][]map[string]string, len(r.Lists))
		for name, items := range r.Lists {
			cp := make([]map[string]string, len(items))
			for i, item := range items {
				cp[i] = maps.Clone(item)
				if cp[i] == nil {
					cp[i] = map[string]string{}
				}
			}
			out.Lists[name] = cp
		}
	}
	return out
}

// MarshalJSON renders the record as one flat object.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Fields)+len(r.Lists))
	for k, v := range r.Fields {
		obj[k] = v
	}
	for name, items := range r.Lists {
		arr := make([]map[string]string, len(items))
		for i, item := range items {
			if item == nil {
				item = map[string]string{}
			}
			arr[i] = item
		}
		obj[name] = arr
	}
	return json.Marshal(obj)
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	rec := NewRecord()
	for k, msg := range raw {
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			rec.Fields[k] = s
			continue
		}
		var items []map[string]string
		if err := json.Unmarshal(msg, &items); err != nil {
			return fmt.Errorf("record property %q: expected string or list of objects", k)
		}
		if rec.Lists == nil {
			rec.Lists = map[string][]map[string]string{}
		}
		rec.Lists[k] = items
	}
	*r = rec
	return nil
}

// Data is a full copy of the data model, as persisted.
type Data struct {
	CoreData            map[string]string `json:"coreData"`
	Interactions        []Record          `json:"interactions"`
	Objectives          []Record          `json:"objectives"`
	CommentsFromLearner []Record          `json:"commentsFromLearner"`
	CommentsFromLMS     []Record          `json:"commentsFromLms"`
}

// Records returns the slice for collection c.
func (d Data) Records(c Collection) []Record {
	switch c {
	case Interactions:
		return d.Interactions
	case Objectives:
		return d.Objectives
	case CommentsFromLearner:
		return d.CommentsFromLearner
	case CommentsFromLMS:
		return d.CommentsFromLMS
	default:
		return nil
	}
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
