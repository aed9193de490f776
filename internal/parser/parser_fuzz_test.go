//go:build go1.18
// +build go1.18

package parser

import (
	"testing"
)

// FuzzParser tests the parser with random inputs to find edge cases and panics.
// Run with: go test -fuzz=FuzzParser -fuzztime=30s ./internal/parser
func FuzzParser(f *testing.F) {
	seeds := []string{
		"",
		"a",
		"a=b",
		"[a]\nb=c",
		"a.b.c=1",
		"a[]=1\na[]=2",
		"a+={x:1}\n[a]\n+=[2]",
		"=1",
		"a=\"",
		"a='x\\'",
		"a=\"\\x4",
		"a=\"\\777\"",
		"a=[1 2\n3",
		"a={k:'v' \"w\"}",
		"a=1\na.b=2\na[]=3",
		"/* a\nb */",
		"a=0x",
		"a=09",
		"a=99999999999999999999",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		// The parser should never panic, regardless of input
		p, err := NewParser(input)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := p.Parse(); err != nil {
			t.Fatal(err)
		}
	})
}
