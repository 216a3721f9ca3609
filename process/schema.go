package process

import (
	"github.com/invopop/jsonschema"
)

var reflector = jsonschema.Reflector{
	ExpandedStruct: true,
}

// Schema returns the JSON schema of a framework document.
func Schema() *jsonschema.Schema {
	s := reflector.Reflect(&Framework{})
	s.Title = "Process framework"
	s.Description = "A catalogue of business processes and their activities"
	return s
}
