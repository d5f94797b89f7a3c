// Package tables decodes the static YAML tables embedded in the binary.
package tables

import (
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Decode goes through a generic map so that tables keep their loose YAML
// typing (numeric-looking codes, anchors) until mapstructure decodes them
// into typed definitions. Unknown keys are errors.
func Decode(raw []byte, out any) error {
	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(generic)
}
