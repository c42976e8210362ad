package runstate

import "encoding/json"

// decodeWithExtra unmarshals data into dst, then separately decodes data into
// a raw key/value map and returns whatever keys are not in knownKeys. This is
// how schema evolution survives a load/save round trip (§4.2 "unknown fields
// on load are preserved"): fields this binary doesn't recognize yet are kept
// verbatim rather than dropped.
func decodeWithExtra(data []byte, knownKeys []string, dst interface{}) (map[string]json.RawMessage, error) {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(knownKeys))
	for _, k := range knownKeys {
		known[k] = true
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !known[k] {
			extra[k] = v
		}
	}
	return extra, nil
}

// encodeWithExtra marshals src, then merges extra's keys back in, skipping
// any key src already produced. Known fields always win over stale extra
// data from a previous schema.
func encodeWithExtra(src interface{}, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
