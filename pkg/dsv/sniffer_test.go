package dsv_test

import (
	"testing"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

func TestSnifferDetectDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		sample   string
		expected rune
	}{
		{
			name:     "comma delimited",
			sample:   "a,b,c\n1,2,3\n4,5,6",
			expected: ',',
		},
		{
			name:     "tab delimited",
			sample:   "a\tb\tc\n1\t2\t3\n4\t5\t6",
			expected: '\t',
		},
		{
			name:     "semicolon delimited",
			sample:   "a;b;c\n1;2;3\n4;5;6",
			expected: ';',
		},
		{
			name:     "pipe delimited",
			sample:   "a|b|c\n1|2|3\n4|5|6",
			expected: '|',
		},
		{
			name:     "empty sample defaults to comma",
			sample:   "",
			expected: ',',
		},
		{
			name:     "single line comma",
			sample:   "a,b,c",
			expected: ',',
		},
		{
			name:     "mixed but more commas",
			sample:   "a,b,c\n1,2,3\n4;5;6",
			expected: ',',
		},
		{
			name:     "quoted commas ignored",
			sample:   "\"a,b\",c,d\n1,2,3",
			expected: ',',
		},
		{
			name:     "consistent semicolons beat stray commas",
			sample:   "a;b,c;d\n1;2;3\n4;5;6\n",
			expected: ';',
		},
		{
			name:     "CRLF lines",
			sample:   "a|b\r\n1|2\r\n",
			expected: '|',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sniffer := dsv.NewSniffer(tt.sample)
			got := sniffer.DetectDelimiter()
			if got != tt.expected {
				t.Errorf("DetectDelimiter() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSnifferHasHeader(t *testing.T) {
	tests := []struct {
		name     string
		sample   string
		expected bool
	}{
		{
			name:     "clear header with identifiers",
			sample:   "name,age,email\nJohn,30,john@example.com",
			expected: true,
		},
		{
			name:     "numeric header looks like data",
			sample:   "123,456,789\n111,222,333",
			expected: false,
		},
		{
			name:     "snake_case header",
			sample:   "first_name,last_name,email_address\nJohn,Doe,john@example.com",
			expected: true,
		},
		{
			name:     "camelCase header",
			sample:   "firstName,lastName,emailAddress\nJohn,Doe,john@example.com",
			expected: true,
		},
		{
			name:     "single line",
			sample:   "a,b,c",
			expected: false,
		},
		{
			name:     "Title Case header",
			sample:   "First Name,Last Name,Email\nJohn,Doe,john@example.com",
			expected: true,
		},
		{
			name:     "data with dates",
			sample:   "2024-01-15,John,30\n2024-01-16,Jane,25",
			expected: false,
		},
		{
			name:     "mixed header and data indicators",
			sample:   "id,name,date\n1,John,2024-01-15",
			expected: true,
		},
		{
			name:     "trailing newline only",
			sample:   "id,name\n",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sniffer := dsv.NewSniffer(tt.sample)
			got := sniffer.HasHeader()
			if got != tt.expected {
				t.Errorf("HasHeader() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSnifferAnalyzeCaching(t *testing.T) {
	sample := "a,b,c\n1,2,3"
	sniffer := dsv.NewSniffer(sample)

	delim1 := sniffer.DetectDelimiter()
	header1 := sniffer.HasHeader()

	delim2 := sniffer.DetectDelimiter()
	header2 := sniffer.HasHeader()

	if delim1 != delim2 {
		t.Error("delimiter results should be consistent")
	}
	if header1 != header2 {
		t.Error("header results should be consistent")
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   dsv.Sniffed
	}{
		{
			name:   "csv",
			sample: "id,name\n1,John\n",
			want:   dsv.Sniffed{Format: dsv.FormatCSV, Delimiter: ",", Header: true},
		},
		{
			name:   "csv_rfc",
			sample: "id,name\r\n1,John\r\n",
			want:   dsv.Sniffed{Format: dsv.FormatCSVRFC, Delimiter: ",", CRLF: true, Header: true},
		},
		{
			name:   "tsv",
			sample: "1\t2\n3\t4\n",
			want:   dsv.Sniffed{Format: dsv.FormatTSV, Delimiter: "\t"},
		},
		{
			name:   "semicolons",
			sample: "a;b\n",
			want:   dsv.Sniffed{Format: dsv.FormatCSV, Delimiter: ";"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dsv.Sniff(tt.sample); got != tt.want {
				t.Errorf("Sniff() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
