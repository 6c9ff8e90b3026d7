package usecase

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

// resolveMIME keeps a caller-declared media type unless it is missing or
// generic, in which case the content is sniffed: stdlib detection first,
// then the broader mimetype library when stdlib is not sure.
func resolveMIME(declared string, content []byte) string {
	if mt := cleanMIME(declared); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if len(content) == 0 {
		return "application/octet-stream"
	}
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if mt := cleanMIME(http.DetectContentType(head)); mt != "application/octet-stream" {
		return mt
	}
	return cleanMIME(mimetype.Detect(head).String())
}

func cleanMIME(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return mt
}

func isImageMIME(mt string) bool {
	return strings.HasPrefix(mt, "image/")
}
