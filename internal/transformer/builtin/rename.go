package builtin

import "datalake/pkg/records"

// Rename moves values between keys according to Map (from -> to). Keys not
// present in Map are left untouched. A rename onto an existing key replaces
// its value.
type Rename struct {
	Map map[string]string
}

func (r Rename) Apply(in []records.Record) []records.Record {
	if len(r.Map) == 0 {
		return in
	}
	for _, rec := range in {
		for from, to := range r.Map {
			if from == to {
				continue
			}
			v, ok := rec[from]
			if !ok {
				continue
			}
			delete(rec, from)
			rec[to] = v
		}
	}
	return in
}
