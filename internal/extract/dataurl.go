package extract

import (
	"encoding/base64"
	"strings"
)

// DataURL encodes data as a base64 data URL: data:<mime>;base64,<payload>.
func DataURL(mimeType string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
