package library

import (
	"fmt"
	"strconv"
	"strings"
)

var absPrefixes = []string{"http://arxiv.org/abs/", "https://arxiv.org/abs/"}

// Validate cross-checks a resolved preprint before it is stored. entryID is
// the Atom id (http://arxiv.org/abs/<id>[v<n>]), ref the identifier that was
// requested and pdfURL the link the payload came from, whose last path
// segment must end in v<n>. It returns that last segment and n.
func Validate(entryID, ref, pdfURL string) (string, int, error) {
	identifier, ok := "", false
	for _, prefix := range absPrefixes {
		if strings.HasPrefix(entryID, prefix) {
			identifier, ok = strings.TrimPrefix(entryID, prefix), true
			break
		}
	}
	if !ok {
		return "", 0, fmt.Errorf("unexpected arxiv id %q", entryID)
	}

	identifier, idVersion := splitVersion(identifier)
	if identifier != ref {
		return "", 0, fmt.Errorf("inconsistent ids: arxiv = %q, external reference = %q", identifier, ref)
	}

	idx := strings.LastIndex(pdfURL, "/")
	if idx < 0 || idx == len(pdfURL)-1 {
		return "", 0, fmt.Errorf("unexpected url structure %q", pdfURL)
	}
	basename := pdfURL[idx+1:]
	_, urlVersion := splitVersion(basename)
	if urlVersion == "" {
		return "", 0, fmt.Errorf("no version suffix in %q", pdfURL)
	}
	if idVersion != "" && idVersion != urlVersion {
		return "", 0, fmt.Errorf("inconsistent versions: id = %q (%s), url = %q (%s)", entryID, idVersion, pdfURL, urlVersion)
	}

	version, err := strconv.ParseUint(urlVersion, 10, 8)
	if err != nil {
		return "", 0, fmt.Errorf("invalid version string %q: %w", urlVersion, err)
	}
	return basename, int(version), nil
}

// FileName is the on-disk name of version of id, e.g. 9711200v3.pdf for
// hep-th/9711200.
func FileName(id string, version int) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	return fmt.Sprintf("%sv%d.pdf", id, version)
}

// splitVersion splits "2101.00001v2" into "2101.00001" and "2". The version
// is empty when value carries none.
func splitVersion(value string) (string, string) {
	idx := strings.LastIndex(value, "v")
	if idx < 0 || idx == len(value)-1 {
		return value, ""
	}
	for _, r := range value[idx+1:] {
		if r < '0' || r > '9' {
			return value, ""
		}
	}
	return value[:idx], value[idx+1:]
}
