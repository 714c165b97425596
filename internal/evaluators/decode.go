package evaluators

import "encoding/json"

func decode(raw json.RawMessage, out any) error {
	return json.Unmarshal(raw, out)
}
