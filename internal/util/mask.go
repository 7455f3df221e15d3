package util

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	cstr "github.com/shopmonkeyus/go-common/string"
)

var isSecretParam = regexp.MustCompile(`(?i)(password|pwd|secret|token|key)`)

// MaskURL masks the credentials of a database url. The host and database stay readable so the
// url can be shown in a confirmation prompt.
func MaskURL(urlString string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	var str strings.Builder
	str.WriteString(u.Scheme)
	str.WriteString("://")
	if u.User != nil {
		str.WriteString(cstr.Mask(u.User.Username()))
		if pass, ok := u.User.Password(); ok {
			str.WriteString(":")
			str.WriteString(cstr.Mask(pass))
		}
		str.WriteString("@")
	}
	str.WriteString(u.Host)
	if u.Path != "/" {
		str.WriteString(u.Path)
	}
	var qs []string
	for k, v := range u.Query() {
		val := strings.Join(v, ",")
		if isSecretParam.MatchString(k) {
			val = cstr.Mask(val)
		}
		qs = append(qs, k+"="+val)
	}
	sort.Strings(qs)
	if len(qs) > 0 {
		str.WriteString("?")
		str.WriteString(strings.Join(qs, "&"))
	}
	return str.String(), nil
}
