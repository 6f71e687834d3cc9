package binanalyzer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chains-project/calltrace/decode_calls/binanalyzer"
)

func TestReadTable_LastOccurrenceWins(t *testing.T) {
	// arrange
	listing := "00001000 00000010 T first\n" +
		"00002000 00000004 T other\n" +
		"00001000 00000010 T second\n"

	// act
	table, err := binanalyzer.ReadTable(strings.NewReader(listing))

	// assert
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	sym, ok := table.Lookup(0x1000)
	require.True(t, ok)
	assert.Equal(t, "second", sym.Name)
	assert.Equal(t, []string{"00001000", "00000010", "T", "second"}, sym.Fields)
}

func TestReadTable_SkipsLinesWithoutAddress(t *testing.T) {
	listing := "\n" +
		"   \t \n" +
		"                 U memcpy\n" +
		"00001000 00000010 T setup\n" +
		"\n"

	table, err := binanalyzer.ReadTable(strings.NewReader(listing))

	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	_, ok := table.Lookup(0x1000)
	assert.True(t, ok)
}

func TestReadTable_SplitsOnSingleSpacesUpToFourFields(t *testing.T) {
	listing := "00002010 00000008 T readings_take(unsigned long)\n" +
		"00002018 t loop_once\n" +
		"00002020 00000004 T no_trailing_newline"

	table, err := binanalyzer.ReadTable(strings.NewReader(listing))
	require.NoError(t, err)

	sym, ok := table.Lookup(0x2010)
	require.True(t, ok)
	assert.Equal(t, "00002010", sym.Raw())
	assert.Equal(t, "readings_take(unsigned long)", sym.Name)

	sym, ok = table.Lookup(0x2018)
	require.True(t, ok)
	assert.Equal(t, []string{"00002018", "t", "loop_once"}, sym.Fields)
	assert.Equal(t, "loop_once", sym.Name)

	sym, ok = table.Lookup(0x2020)
	require.True(t, ok)
	assert.Equal(t, "no_trailing_newline", sym.Name)
}

func TestReadTable_Layout(t *testing.T) {
	listing := "00001000 00000010 T setup\n00001010 t loop\n"

	table, err := binanalyzer.ReadTable(strings.NewReader(listing),
		binanalyzer.BuildWithLayout(binanalyzer.Layout{MaxFields: 4, NameField: 2}))
	require.NoError(t, err)

	sym, _ := table.Lookup(0x1000)
	assert.Equal(t, "T", sym.Name)
	// no size column, index 2 is already the name
	sym, _ = table.Lookup(0x1010)
	assert.Equal(t, "loop", sym.Name)
}

func TestReadTable_MalformedLineFailsByDefault(t *testing.T) {
	listing := "00001000 00000010 T setup\nzzzz 00000008 T bogus\n"

	_, err := binanalyzer.ReadTable(strings.NewReader(listing))

	var malformed *binanalyzer.MalformedSymbolLineError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 2, malformed.Line)
	assert.Equal(t, "zzzz 00000008 T bogus", malformed.Text)
}

func TestReadTable_MalformedLineSkipped(t *testing.T) {
	listing := "00001000 00000010 T setup\nzzzz 00000008 T bogus\n00001010 00000008 T loop\n"

	table, err := binanalyzer.ReadTable(strings.NewReader(listing), binanalyzer.BuildWithSkipMalformed(true))

	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestReadTable_BuiltinDemangle(t *testing.T) {
	listing := "00003fe8 d _GLOBAL_OFFSET_TABLE_\n" +
		"00002000 00000010 T _ZN10Naturalist4tickEv\n" +
		"00002010 00000008 T _Z3fooi\n" +
		"00002018 t main\n" +
		"00002020 00000010 T _ZN10Naturalist4tockEi\n"

	for _, tc := range []struct {
		style binanalyzer.DemangleStyle
		tick  string
		foo   string
		tock  string
	}{
		{binanalyzer.DemangleFull, "Naturalist::tick()", "foo(int)", "Naturalist::tock(int)"},
		{binanalyzer.DemangleTemplates, "Naturalist::tick", "foo", "Naturalist::tock"},
		{binanalyzer.DemangleSimplified, "Naturalist::tick", "foo", "Naturalist::tock"},
	} {
		t.Run(string(tc.style), func(t *testing.T) {
			table, err := binanalyzer.ReadTable(strings.NewReader(listing),
				binanalyzer.BuildWithDemangleMode(binanalyzer.DemangleBuiltin),
				binanalyzer.BuildWithDemangleStyle(tc.style))
			require.NoError(t, err)

			sym, _ := table.Lookup(0x2000)
			assert.Equal(t, tc.tick, sym.Name)
			sym, _ = table.Lookup(0x2010)
			assert.Equal(t, tc.foo, sym.Name)
			sym, _ = table.Lookup(0x2018)
			assert.Equal(t, "main", sym.Name)
			sym, _ = table.Lookup(0x2020)
			assert.Equal(t, tc.tock, sym.Name)
		})
	}
}

func TestReadTable_ExternalModeKeepsText(t *testing.T) {
	table, err := binanalyzer.ReadTable(strings.NewReader("00002010 00000008 T _Z3fooi\n"))

	require.NoError(t, err)
	sym, _ := table.Lookup(0x2010)
	assert.Equal(t, "_Z3fooi", sym.Name)
}

func TestSymbolTable_Lookup(t *testing.T) {
	table := binanalyzer.NewSymbolTable(
		binanalyzer.SymbolRecord{Address: 0x1000, Fields: []string{"1000", "T", "10", "foo"}, Name: "foo"},
	)

	sym, ok := table.Lookup(0x1000)
	require.True(t, ok)
	assert.Equal(t, "1000", sym.Raw())

	_, ok = table.Lookup(0x1001)
	assert.False(t, ok)

	var empty *binanalyzer.SymbolTable
	_, ok = empty.Lookup(0x1000)
	assert.False(t, ok)
	assert.Equal(t, 0, empty.Len())
}

func TestParseDemangleMode(t *testing.T) {
	m, err := binanalyzer.ParseDemangleMode("builtin")
	require.NoError(t, err)
	assert.Equal(t, binanalyzer.DemangleBuiltin, m)

	_, err = binanalyzer.ParseDemangleMode("c++filt")
	assert.Error(t, err)

	_, err = binanalyzer.ParseDemangleStyle("pretty")
	assert.Error(t, err)
}
