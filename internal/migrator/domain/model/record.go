package model

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Record is implemented by every typed catalog record.
type Record interface {
	// RecordID is the origin-local id. Never compare it across stores.
	RecordID() int64
	// NaturalKey is the cross-store correlation key.
	NaturalKey() string
}

// Extra keeps the fields a typed record does not model, so that they survive
// a decode/encode round trip untouched.
type Extra map[string]json.RawMessage

var knownKeyCache sync.Map

// knownKeys returns the JSON names of the struct fields of t.
func knownKeys(t reflect.Type) map[string]struct{} {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := knownKeyCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		keys[name] = struct{}{}
	}
	knownKeyCache.Store(t, keys)
	return keys
}

// marshalRecord encodes known (a pointer to a method-less alias of the record
// type) and merges in the extra fields. Known fields always win, so a known
// field that was stripped stays stripped.
func marshalRecord(known interface{}, extra Extra) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	keys := knownKeys(reflect.TypeOf(known))
	for k, v := range extra {
		if _, isKnown := keys[k]; isKnown {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// unmarshalRecord decodes data into known and returns the leftover fields.
func unmarshalRecord(data []byte, known interface{}) (Extra, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	keys := knownKeys(reflect.TypeOf(known))
	var extra Extra
	for k, v := range all {
		if _, isKnown := keys[k]; isKnown {
			continue
		}
		if extra == nil {
			extra = Extra{}
		}
		extra[k] = v
	}
	return extra, nil
}

// Decimal is a money amount. The platform sends strings, but numbers are
// accepted too.
type Decimal string

// UnmarshalJSON accepts "19.99", 19.99 and null.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Decimal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = Decimal(n.String())
	return nil
}

// Float parses the amount. ok is false for empty or malformed values.
func (d Decimal) Float() (float64, bool) {
	if d == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(d)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Decode parses one raw record into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var rec T
	err := json.Unmarshal(raw, &rec)
	return rec, err
}
