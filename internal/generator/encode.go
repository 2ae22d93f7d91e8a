package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"mockfogload/internal/datagen"
	"mockfogload/internal/transport"
)

// Encode serializes v and returns the payload with its content type.
func Encode(v datagen.Value, enc Encoding, template string) ([]byte, string, error) {
	if enc == EncodingFormat {
		return []byte(Render(template, v)), transport.ContentText, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("encode datapoint: %w", err)
	}
	return b, transport.ContentJSON, nil
}

// Render substitutes every ${name} in template with the named field of v.
// Unknown fields render as <invalid datapoint: name>; an unterminated
// placeholder is copied verbatim.
func Render(template string, v datagen.Value) string {
	var b strings.Builder
	rest := template
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		j := strings.IndexByte(rest[i+2:], '}')
		if j < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:i])
		name := rest[i+2 : i+2+j]
		if val, ok := v.Field(name); ok {
			b.WriteString(val)
		} else {
			b.WriteString("<invalid datapoint: " + name + ">")
		}
		rest = rest[i+2+j+1:]
	}
}
