package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeParams decodes an opaque strategy_param blob (or a registry params
// map) into a typed struct. Unknown fields are ignored; type coercion is
// permissive, matching how params files are hand-written.
func DecodeParams(raw any, out any) error {
	var src any
	switch v := raw.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		if err := json.Unmarshal(v, &src); err != nil {
			return fmt.Errorf("strategy params: %w", err)
		}
	case json.RawMessage:
		return DecodeParams([]byte(v), out)
	default:
		src = raw
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(src); err != nil {
		return fmt.Errorf("strategy params: %w", err)
	}
	return nil
}
