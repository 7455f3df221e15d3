package migrator

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const spacer = "    "

var multiSpaceRegexp = regexp.MustCompile(`\s{2,}`)

// shortSQL returns the statement on a single line cut to max characters.
func shortSQL(sql string, max int) string {
	msg := strings.TrimSpace(strings.ReplaceAll(sql, "\n", " "))
	msg = multiSpaceRegexp.ReplaceAllString(msg, " ")
	if len(msg) > max {
		msg = strings.TrimSpace(msg[0:max])
	}
	return msg
}

func WriteChangeHeader(w io.Writer, name string, typename string) {
	var buf = bufio.NewWriter(w)
	buf.WriteString(fmt.Sprintf("[*] Changing the `%s` %s\n", name, typename))
	buf.Flush()
}

func WriteUnchangedHeader(w io.Writer, name string, typename string) {
	var buf = bufio.NewWriter(w)
	buf.WriteString(fmt.Sprintf("[=] Keeping the `%s` %s\n", name, typename))
	buf.Flush()
}

func WriteAddedHeader(w io.Writer, name string, typename string, extra ...string) {
	var buf = bufio.NewWriter(w)
	detail := strings.Join(extra, " ")
	buf.WriteString(strings.TrimRight(fmt.Sprintf("[+] Adding the `%s` %s %s", name, typename, detail), " ") + "\n")
	buf.Flush()
}

func WriteSkippedLine(w io.Writer, typename string, value string, extra ...string) {
	var buf = bufio.NewWriter(w)
	detail := strings.Join(extra, " ")
	buf.WriteString(strings.TrimRight(fmt.Sprintf(spacer+"[!] Missing the %s `%s` %s", typename, value, detail), " ") + "\n")
	buf.Flush()
}
