package importer

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// jsonDataMarker precedes the conversation payload inside the script tag of
// a chat.html export.
const jsonDataMarker = "jsonData ="

// extractEmbeddedJSON scans an HTML export for the script element that
// assigns the conversation array to jsonData and returns the JSON text
// between the first '[' and the last ']'. The second return value reports
// whether such a script was found.
func extractEmbeddedJSON(r io.Reader) (string, bool, error) {
	z := html.NewTokenizer(r)
	inScript := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", false, nil
			}
			return "", false, errors.Wrap(z.Err(), "tokenize html")
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			text := string(z.Text())
			if !strings.Contains(text, jsonDataMarker) {
				continue
			}
			payload, ok := sliceJSONArray(text)
			if !ok {
				return "", false, errors.New("script assigns jsonData but holds no array literal")
			}
			return payload, true, nil
		}
	}
}

func sliceJSONArray(text string) (string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
