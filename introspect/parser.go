package introspect

import "encoding/xml"

// Parse decodes content as a D-Bus introspection XML document. It performs
// no semantic validation; call Validate on the result before handing it to
// the code generator.
func Parse(content []byte) (*Document, error) {
	var d Document
	if err := xml.Unmarshal(content, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
