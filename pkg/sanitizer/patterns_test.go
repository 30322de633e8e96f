package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionStartPattern(t *testing.T) {
	tests := []struct {
		line       string
		wantMatch  bool
		wantPrefix string
	}{
		{"WARNING: ThreadSanitizer: data race (pid=1)", true, ""},
		{"==5054==ERROR: AddressSanitizer: SEGV on unknown address 0x0", true, ""},
		{"[talker-1] ==12==ERROR: LeakSanitizer: detected memory leaks", true, "[talker-1] "},
		{"[listener-2] WARNING: ThreadSanitizer: lock-order-inversion (potential deadlock)", true, "[listener-2] "},
		{"ERROR: could not open file", false, ""},
		{"SUMMARY: AddressSanitizer: SEGV", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m := sectionStartPattern.FindStringSubmatch(tt.line)
			if !tt.wantMatch {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.wantPrefix, m[sectionStartPattern.SubexpIndex("prefix")])
		})
	}
}

func TestSectionEndPattern(t *testing.T) {
	assert.True(t, sectionEndPattern.MatchString("SUMMARY: AddressSanitizer: SEGV /ros2/a.c:1 in f"))
	assert.True(t, sectionEndPattern.MatchString("[talker-1] SUMMARY: ThreadSanitizer: data race"))
	assert.False(t, sectionEndPattern.MatchString("SUMMARY: all tests passed"))
}

func TestTraceTable_Lookup(t *testing.T) {
	table := DefaultTraceTable()

	assert.Len(t, table.Lookup(ErrorNameDataRace), 2)
	assert.Len(t, table.Lookup(ErrorNameDetectedMemoryLeaks), 1)
	assert.Len(t, table.Lookup(ErrorNameLockOrderInversion), 2)

	wildcard := table.Lookup("heap-use-after-free on address")
	require.Len(t, wildcard, 1)
	assert.True(t, wildcard[0].MatchString("anything at all"))
}

func TestTraceTable_Set(t *testing.T) {
	table := DefaultTraceTable()

	require.NoError(t, table.Set("heap-use-after-free on address", `^READ`, `^freed by`))
	assert.Len(t, table.Lookup("heap-use-after-free on address"), 2)

	err := table.Set("x")
	assert.Error(t, err)

	err = table.Set("x", `(`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern 0")

	assert.Equal(t, []string{
		ErrorNameDataRace,
		ErrorNameDetectedMemoryLeaks,
		"heap-use-after-free on address",
		ErrorNameLockOrderInversion,
	}, table.Names())
}

func TestTraceTable_ZeroValue(t *testing.T) {
	var table TraceTable
	assert.False(t, table.Has(ErrorNameDataRace))
	assert.Len(t, table.Lookup(ErrorNameDataRace), 1)

	require.NoError(t, table.Set(ErrorNameDataRace, `^\s+Write`))
	assert.True(t, table.Has(ErrorNameDataRace))
	assert.Equal(t, []string{ErrorNameDataRace}, table.Names())
}

func TestTraceTable_DefaultsAreIndependent(t *testing.T) {
	a := DefaultTraceTable()
	b := DefaultTraceTable()

	require.NoError(t, a.Set(ErrorNameDataRace, `^only$`))
	assert.Len(t, b.Lookup(ErrorNameDataRace), 2)
}

func TestSectionHeader(t *testing.T) {
	tests := []struct {
		line       string
		wantPrefix string
		wantOK     bool
	}{
		{"WARNING: ThreadSanitizer: data race (pid=1)", "", true},
		{"==5054==ERROR: AddressSanitizer: SEGV on unknown address 0x0", "", true},
		{"12: ==5054==ERROR: AddressSanitizer: SEGV on unknown address 0x0", "12: ", true},
		{"ThreadSanitizer: reported 2 warnings", "", false},
		{"SUMMARY: ThreadSanitizer: data race x.cpp:1 in f", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			prefix, ok := SectionHeader(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPrefix, prefix)
		})
	}
}

func TestIsSectionEnd(t *testing.T) {
	assert.True(t, IsSectionEnd("SUMMARY: AddressSanitizer: 40 byte(s) leaked in 1 allocation(s)."))
	assert.True(t, IsSectionEnd("7: SUMMARY: ThreadSanitizer: data race x.cpp:1 in f"))
	assert.False(t, IsSectionEnd("ThreadSanitizer: reported 2 warnings"))
}

func TestTraceTable_Has(t *testing.T) {
	table := DefaultTraceTable()

	assert.True(t, table.Has(ErrorNameDataRace))
	assert.False(t, table.Has("SEGV on unknown address"))
}
