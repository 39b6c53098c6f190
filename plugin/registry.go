package plugin

import (
	"fmt"
	"sort"
)

// Transformers maps a line format name to its parser
var Transformers = map[string]func(key string) LineTransformer{
	"json_key": func(key string) LineTransformer {
		return NewJSONTransformer(key)
	},
	"plain": func(string) LineTransformer {
		return &PlainPlugin{}
	},
	"auto": func(key string) LineTransformer {
		return NewAutoTransformer(key)
	},
}

func TransformerLookup(name, key string) (LineTransformer, error) {
	factory, ok := Transformers[name]
	if !ok {
		return nil, fmt.Errorf("unknown transformer: %s", name)
	}
	return factory(key), nil
}

// OutputConfig carries what any output factory may need
type OutputConfig struct {
	MIDIPort    int
	MIDIChannel uint8
	SampleRate  int
}

// Outputs maps an output name to its factory.
// The returned port still needs Initialize.
var Outputs = map[string]func(OutputConfig) OutputPort{
	"log": func(OutputConfig) OutputPort {
		return NewLogOutput()
	},
	"midi": func(c OutputConfig) OutputPort {
		return NewMIDIOutput(c.MIDIPort, c.MIDIChannel)
	},
	"tone": func(c OutputConfig) OutputPort {
		return NewToneOutput(c.SampleRate)
	},
}

func OutputLookup(name string, c OutputConfig) (OutputPort, error) {
	factory, ok := Outputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOutput, name)
	}
	return factory(c), nil
}

// OutputNames lists the registered outputs, sorted
func OutputNames() []string {
	names := make([]string, 0, len(Outputs))
	for n := range Outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
