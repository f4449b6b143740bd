// Command localecheck valida o resolvedor de locale contra uma tabela fixa
// de casos e, opcionalmente, os feeds RSS publicados em cada domínio.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ambilab-gateway/feedcheck"
	"ambilab-gateway/locale"
)

type testCase struct {
	name     string
	cookie   string
	hostname string
	want     locale.Locale
}

var cases = []testCase{
	{"cookie wins over domain", "locale=cs", "ambilab.com", locale.CS},
	{"invalid cookie falls through", "locale=fr", "ambilab.cz", locale.CS},
	{"unknown domain uses default", "", "example.org", locale.Default},
	{"www is stripped", "", "www.ambilab.cz", locale.CS},
	{"port is stripped", "", "localhost:4321", locale.EN},
	{"uppercase host", "", "AMBILAB.CZ", locale.CS},
	{"cookie among others", "theme=dark; locale=en", "ambilab.cz", locale.EN},
	{"cookie value trimmed", "locale= cs ", "ambilab.com", locale.CS},
	{"garbage cookie", "=;;=locale", "ambilab.com", locale.EN},
	{"empty everything", "", "", locale.Default},
	{"loopback", "", "127.0.0.1:8080", locale.EN},
}

func main() {
	feeds := flag.String("feeds", "", "comma-separated site URLs whose /rss.xml should be checked")
	timeout := flag.Duration("timeout", 30*time.Second, "timeout for each feed request")
	flag.Parse()

	failed := runCases(os.Stdout)

	if *feeds != "" {
		checker := feedcheck.New(&http.Client{Timeout: *timeout})
		failed += runFeeds(context.Background(), os.Stdout, checker, strings.Split(*feeds, ","))
	}

	if failed > 0 {
		fmt.Printf("\n%d check(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("\nall checks passed")
}

func runCases(w io.Writer) int {
	failed := 0
	for _, tc := range cases {
		got := locale.Resolve(tc.cookie, tc.hostname)
		if got != tc.want {
			failed++
			fmt.Fprintf(w, "[FAIL] %s: Resolve(%q, %q) = %q, want %q\n", tc.name, tc.cookie, tc.hostname, got, tc.want)
			continue
		}
		fmt.Fprintf(w, "[PASS] %s\n", tc.name)
	}
	return failed
}

func runFeeds(ctx context.Context, w io.Writer, checker *feedcheck.Checker, sites []string) int {
	failed := 0
	for _, site := range sites {
		site = strings.TrimSpace(site)
		if site == "" {
			continue
		}
		res := checker.Check(ctx, site)
		if !res.OK() {
			failed++
		}
		fmt.Fprintln(w, res.String())
	}
	return failed
}
