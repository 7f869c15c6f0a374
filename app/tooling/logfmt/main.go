// This program takes the structured log output and makes it readable.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

var service string

func init() {
	if len(os.Args) > 1 {
		service = os.Args[1]
	}
}

func main() {
	var b strings.Builder

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		s := scanner.Text()

		m := make(map[string]any)
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			if service == "" {
				fmt.Println(s)
			}
			continue
		}

		// If a service filter was provided, check.
		if service != "" && m["service"] != service {
			continue
		}

		b.Reset()

		for _, key := range []string{"service", "ts", "level", "traceid", "caller", "msg"} {
			v, ok := m[key]
			if !ok {
				continue
			}
			b.WriteString(fmt.Sprintf("%s: ", v))
			delete(m, key)
		}

		// Write the rest of the keys ignoring these.
		for k, v := range m {
			if k == "trace_id" {
				continue
			}
			b.WriteString(fmt.Sprintf("%s[%v]: ", k, v))
		}

		out := b.String()
		fmt.Println(out[:len(out)-2])
	}

	if err := scanner.Err(); err != nil {
		fmt.Println(err)
	}
}
