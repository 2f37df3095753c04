package hivetype

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantSql string
		wantErr bool
	}{
		{
			name:    "simple type",
			input:   " string ",
			wantSql: "string",
		},
		{
			name:    "struct fields are sorted",
			input:   "struct < field2: number, field1 : string >",
			wantSql: "struct<field1:string,field2:number>",
		},
		{
			name:    "array of struct",
			input:   "array<struct<x:string>>",
			wantSql: "array<struct<x:string>>",
		},
		{
			name:    "trailing comma before closing bracket",
			input:   "struct<b:struct<S:string>,a:int,>",
			wantSql: "struct<a:int,b:struct<S:string>>",
		},
		{
			name:    "empty struct",
			input:   "struct<>",
			wantSql: "struct<>",
		},
		{
			name:    "keyword as substring stays a word",
			input:   "struct<arrays:structure>",
			wantSql: "struct<arrays:structure>",
		},
		{
			name: "multi line cdc fragment",
			input: `
				struct<
					iun:struct<S:string>,
					version:struct<N:string,S:string>,
					recipients:struct<L:array<struct<M:struct<
						recipientId:struct<S:string>
					>>>>
				>`,
			wantSql: "struct<iun:struct<S:string>,recipients:struct<L:array<struct<M:struct<recipientId:struct<S:string>>>>>,version:struct<N:string,S:string>>",
		},
		{
			name:    "missing closing bracket",
			input:   "struct < field2: number, field1 : string ",
			wantErr: true,
		},
		{
			name:    "trailing content",
			input:   "struct < field2: number, field1 : string > a",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "missing colon",
			input:   "struct<a string>",
			wantErr: true,
		},
		{
			name:    "keyword used as field name",
			input:   "struct<array:string>",
			wantErr: true,
		},
		{
			name:    "array without element",
			input:   "array<>",
			wantErr: true,
		},
		{
			name:    "punctuation where a type is expected",
			input:   "struct<a:,b:int>",
			wantErr: true,
		},
		{
			name:    "missing separator between fields",
			input:   "struct<a:int b:int>",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrGrammar))

				var grammarErr *GrammarError
				require.True(t, errors.As(err, &grammarErr))
				assert.Equal(t, tt.input, grammarErr.Source)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSql, got.Sql())
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	inputs := []string{
		"struct<z:string,a:array<struct<y:int,b:boolean>>>",
		"array<array<array<string>>>",
		"struct<dynamodb:struct<Keys:struct<pk:struct<S:string>>,SizeBytes:bigint>>",
		"bigint",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input)
			require.NoError(t, err)
			second, err := Parse(first.Sql())
			require.NoError(t, err)
			assert.Equal(t, first.Sql(), second.Sql())
		})
	}
}

func TestParseErrorDetails(t *testing.T) {
	_, err := Parse("struct<a:int> trailing")
	require.Error(t, err)

	var grammarErr *GrammarError
	require.True(t, errors.As(err, &grammarErr))
	require.NotNil(t, grammarErr.Token)
	assert.Equal(t, "trailing", grammarErr.Token.Value)
	assert.Equal(t, 14, grammarErr.Token.Position)
	assert.Contains(t, err.Error(), "end-of-string expected")
	assert.Contains(t, err.Error(), "struct<a:int> trailing")

	_, err = Parse("array<string")
	require.True(t, errors.As(err, &grammarErr))
	assert.Nil(t, grammarErr.Token)
	assert.Contains(t, err.Error(), "no token remains")
}

func TestParseMaxDepth(t *testing.T) {
	deep := strings.Repeat("array<", MaxDepth+2) + "string" + strings.Repeat(">", MaxDepth+2)
	_, err := Parse(deep)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGrammar))

	ok := strings.Repeat("array<", 50) + "string" + strings.Repeat(">", 50)
	parsed, err := Parse(ok)
	require.NoError(t, err)
	assert.Equal(t, ok, parsed.Sql())
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("struct<") })
	assert.NotPanics(t, func() { MustParse("int") })
}
