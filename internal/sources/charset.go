package sources

import (
	"bytes"
	"fmt"
	"mime"
	"regexp"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var prologEncodingRe = regexp.MustCompile(`(?i)^\s*<\?xml[^>]*\bencoding\s*=`)

// toUTF8 transcodes a feed body whose charset is only declared by the HTTP
// Content-Type header. Bodies whose XML prolog names an encoding are left
// alone because the parser honours the prolog itself.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	label := headerCharset(contentType)
	if label == "" || declaresEncoding(body) {
		return body, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		// Unknown labels are parsed as-is rather than failing the feed.
		return body, nil
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return body, nil
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", label, err)
	}
	return out, nil
}

func headerCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

func declaresEncoding(body []byte) bool {
	head := body
	if len(head) > 256 {
		head = head[:256]
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	return prologEncodingRe.Match(head)
}
