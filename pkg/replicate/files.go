package replicate

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileInput reads a local file and returns it as a data URL suitable for a
// file-typed prediction input.
func FileInput(path string) (string, error) {
	bs, err := os.ReadFile(path) //nolint:gosec // caller-provided path
	if err != nil {
		return "", err
	}
	return DataURL(bs), nil
}

// DataURL encodes bs as a base64 data URL with a sniffed content type.
func DataURL(bs []byte) string {
	mt, _, _ := strings.Cut(mimetype.Detect(bs).String(), ";")
	b64 := base64.StdEncoding.EncodeToString(bs)
	return fmt.Sprintf("data:%s;base64,%s", mt, b64)
}
