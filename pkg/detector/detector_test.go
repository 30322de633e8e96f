package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/sanreport/pkg/parser"
	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("..", "sanitizer", "testdata", name, "input.log")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Required test file not found: %s", path)
	}
	return path
}

func TestDetector_DetectFromFile_SEGV(t *testing.T) {
	d := New()
	result, err := d.DetectFromFile(context.Background(), fixture(t, "segv"))
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}

	if result.SampledLines != 16 {
		t.Errorf("Expected 16 sampled lines, got %d", result.SampledLines)
	}
	if result.Headers != 1 || result.Summaries != 1 {
		t.Errorf("Expected 1 header and 1 summary, got %d and %d", result.Headers, result.Summaries)
	}
	if len(result.Tools) != 1 || result.Tools[0].Value != "AddressSanitizer" {
		t.Errorf("Expected AddressSanitizer, got %+v", result.Tools)
	}
	if len(result.ErrorNames) != 1 || result.ErrorNames[0].Value != "SEGV on unknown address" {
		t.Errorf("Unexpected error names: %+v", result.ErrorNames)
	}
	if len(result.Prefixes) != 1 || result.Prefixes[0].Value != "[test_string_map-1] " {
		t.Errorf("Unexpected prefixes: %+v", result.Prefixes)
	}
	if got := result.SuggestedMarker(); got != "/ros2" {
		t.Errorf("Expected marker /ros2, got %q", got)
	}
	if result.MarkerCandidates[0].Count != 3 {
		t.Errorf("Expected 3 frames under /ros2, got %d", result.MarkerCandidates[0].Count)
	}
	if len(result.UntabledErrorNames) != 1 || result.UntabledErrorNames[0] != "SEGV on unknown address" {
		t.Errorf("Unexpected untabled error names: %v", result.UntabledErrorNames)
	}
	if result.StripANSI() || result.StripPatterns() != nil {
		t.Error("Expected no cleaning suggestions")
	}
}

func TestDetector_DetectFromFile_DataRace(t *testing.T) {
	d := New()
	result, err := d.DetectFromFile(context.Background(), fixture(t, "data_race_different_keys"))
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}

	if result.Headers != 2 {
		t.Errorf("Expected 2 headers, got %d", result.Headers)
	}
	if len(result.Tools) != 1 || result.Tools[0] != (Count{Value: "ThreadSanitizer", Count: 2}) {
		t.Errorf("Unexpected tools: %+v", result.Tools)
	}
	if len(result.UntabledErrorNames) != 0 {
		t.Errorf("data race has a trace table entry, got untabled %v", result.UntabledErrorNames)
	}
	if len(result.Prefixes) != 0 {
		t.Errorf("Expected no prefixes, got %+v", result.Prefixes)
	}
	if result.Unterminated() != 0 {
		t.Errorf("Expected no unterminated sections, got %d", result.Unterminated())
	}
}

func TestDetector_DetectFromFile_NoErrors(t *testing.T) {
	d := New()
	result, err := d.DetectFromFile(context.Background(), fixture(t, "no_errors"))
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}

	if result.HasSections() {
		t.Errorf("Expected no sections, got %d headers", result.Headers)
	}
	if result.SuggestedMarker() != "" {
		t.Errorf("Expected no marker, got %q", result.SuggestedMarker())
	}
}

func TestDetector_DetectFromFile_NotFound(t *testing.T) {
	d := New()
	_, err := d.DetectFromFile(context.Background(), "/nonexistent/file.log")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestDetector_DetectFromLines_CIDecoration(t *testing.T) {
	lines := []string{
		"2026-01-26T14:49:40.7760945Z \x1b[31m==12==ERROR: AddressSanitizer: heap-use-after-free on address 0x602000000010\x1b[0m",
		"2026-01-26T14:49:40.7761010Z READ of size 4 at 0x602000000010 thread T0",
		"2026-01-26T14:49:40.7761102Z     #0 0x4c5a in main /work/src/app/main.cpp:12:3",
		"2026-01-26T14:49:40.7761180Z     #1 0x7f00 in __libc_start_main /usr/lib/libc.so.6",
		"2026-01-26T14:49:40.7761250Z SUMMARY: AddressSanitizer: heap-use-after-free /work/src/app/main.cpp:12:3 in main",
	}

	d := New()
	result := d.DetectFromLines(lines)

	if result.TimestampedLines != 5 {
		t.Errorf("Expected 5 timestamped lines, got %d", result.TimestampedLines)
	}
	if !result.StripANSI() {
		t.Error("Expected escape sequences to be detected")
	}
	patterns := result.StripPatterns()
	if len(patterns) != 1 || patterns[0] != parser.CITimestampPattern {
		t.Errorf("Unexpected strip patterns: %v", patterns)
	}

	// Decoration is removed before headers are examined.
	if len(result.Prefixes) != 0 {
		t.Errorf("Expected no prefixes after cleaning, got %+v", result.Prefixes)
	}
	if len(result.ErrorNames) != 1 || result.ErrorNames[0].Value != "heap-use-after-free on address" {
		t.Errorf("Unexpected error names: %+v", result.ErrorNames)
	}
	if got := result.SuggestedMarker(); got != "/work" {
		t.Errorf("Expected marker /work, got %q", got)
	}
	if len(result.MarkerCandidates) != 1 {
		t.Errorf("System paths should not be candidates, got %+v", result.MarkerCandidates)
	}
}

func TestDetector_DetectFromLines_Unterminated(t *testing.T) {
	lines := []string{
		"WARNING: ThreadSanitizer: data race (pid=1)",
		"  Write of size 8 at 0x7b0c00000f40 by thread T2:",
		"WARNING: ThreadSanitizer: data race (pid=2)",
		"SUMMARY: ThreadSanitizer: data race a.cpp:1 in f",
	}

	result := New().DetectFromLines(lines)

	if result.Unterminated() != 1 {
		t.Errorf("Expected 1 unterminated section, got %d", result.Unterminated())
	}
	if result.ErrorNames[0] != (Count{Value: sanitizer.ErrorNameDataRace, Count: 2}) {
		t.Errorf("Unexpected error names: %+v", result.ErrorNames)
	}
}

func TestDetector_DetectFromLines_EmptyInput(t *testing.T) {
	result := New().DetectFromLines(nil)

	if result.SampledLines != 0 || result.HasSections() {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestDetector_WithSampleSize(t *testing.T) {
	d := New(WithSampleSize(5))
	result, err := d.DetectFromFile(context.Background(), fixture(t, "segv"))
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}
	if result.SampledLines != 5 {
		t.Errorf("Expected 5 sampled lines, got %d", result.SampledLines)
	}
	if result.HasSections() {
		t.Error("Header is past the sample and should not be found")
	}
}

func TestDetector_WithSampleSize_Invalid(t *testing.T) {
	d := New(WithSampleSize(-1))
	if d.sampleSize != DefaultSampleSize {
		t.Errorf("Expected default sample size, got %d", d.sampleSize)
	}
}

func TestDetector_WithTraceTable(t *testing.T) {
	table := sanitizer.DefaultTraceTable()
	if err := table.Set("SEGV on unknown address", `^.*$`); err != nil {
		t.Fatal(err)
	}

	result, err := New(WithTraceTable(table)).DetectFromFile(context.Background(), fixture(t, "segv"))
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}
	if len(result.UntabledErrorNames) != 0 {
		t.Errorf("Expected no untabled error names, got %v", result.UntabledErrorNames)
	}
}

func TestFrameMarker(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"    #1 0x7f3b in rcutils_string_map_getn /ros2/src/ros2/rcutils/src/string_map.c:350:10", "/ros2", true},
		{"[node-1]     #0 rclcpp::Executor::spin_some() /ros2/src/executor.cpp:237 (librclcpp.so+0x1f3a2c)", "/ros2", true},
		{"    #0 0x7f3bd6e6e5a0  (/lib/x86_64-linux-gnu/libc.so.6+0x18e5a0)", "", false},
		{"    #3 0x7f5c in __libc_start_main /usr/lib/libc.so.6", "", false},
		{"    #1 <null> <null> (libstdc++.so.6+0xbd6de)", "", false},
		{"Direct leak of 40 byte(s) in 1 object(s) allocated from:", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := frameMarker(tt.line)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("frameMarker() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSortCounts(t *testing.T) {
	counts := sortCounts(map[string]int{"b": 2, "a": 2, "c": 5})
	var got []string
	for _, c := range counts {
		got = append(got, c.Value)
	}
	if strings.Join(got, ",") != "c,a,b" {
		t.Errorf("Expected c,a,b, got %v", got)
	}
}
