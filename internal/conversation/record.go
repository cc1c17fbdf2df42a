package conversation

import "strings"

// Record is the user's collected details. It is a value type: a copy handed
// to the answering path cannot change the session's record.
type Record struct {
	values [fieldCount]string
	filled [fieldCount]bool
}

func (r Record) Get(f Field) (string, bool) {
	if !f.Valid() {
		return "", false
	}
	return r.values[f], r.filled[f]
}

func (r *Record) set(f Field, value string) {
	r.values[f] = value
	r.filled[f] = true
}

func (r Record) Complete() bool {
	for _, ok := range r.filled {
		if !ok {
			return false
		}
	}
	return true
}

func (r Record) HMO() string {
	v, _ := r.Get(FieldHMO)
	return v
}

func (r Record) Tier() string {
	v, _ := r.Get(FieldTier)
	return v
}

// Values returns the filled fields keyed by field name.
func (r Record) Values() map[string]string {
	out := make(map[string]string, fieldCount)
	for _, f := range Fields() {
		if v, ok := r.Get(f); ok {
			out[f.String()] = v
		}
	}
	return out
}

// Masked is Values with ID and card numbers reduced to their last digits.
func (r Record) Masked() map[string]string {
	out := r.Values()
	for _, f := range []Field{FieldIDNumber, FieldCardNumber} {
		if v, ok := out[f.String()]; ok {
			out[f.String()] = mask(v)
		}
	}
	return out
}

func mask(s string) string {
	const visible = 4
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
}
