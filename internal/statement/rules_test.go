package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesApply(t *testing.T) {
	rules := Rules{
		ReplaceWords: []ReplaceWordRule{
			{Before: "Netflix.Com", After: "Netflix"},
			{Before: "UBER", After: "Uber"},
			{Before: "UBER EATS", After: "Uber Eats"},
			{Before: "", After: "never"},
		},
		IgnoreWords: []string{"", "PAGAMENTO RECEBIDO"},
	}

	tests := []struct {
		name    string
		title   string
		want    string
		outcome Outcome
	}{
		{"exact substring replaced", "Netflix.Com 12/03", "Netflix", Replaced},
		{"case differs, kept", "NETFLIX.COM SUBSCRIPTION", "NETFLIX.COM SUBSCRIPTION", Kept},
		{"first rule wins", "UBER EATS *PEDIDO", "Uber", Replaced},
		{"ignored", "PAGAMENTO RECEBIDO OBRIGADO", "", Ignored},
		{"ignore is case-sensitive", "Pagamento recebido", "Pagamento recebido", Kept},
		{"no rule", "Padaria Central", "Padaria Central", Kept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := rules.Apply(tt.title)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestRulesIgnoreBeforeReplace(t *testing.T) {
	rules := Rules{
		ReplaceWords: []ReplaceWordRule{{Before: "IOF", After: "Tax"}},
		IgnoreWords:  []string{"ESTORNO"},
	}
	got, outcome := rules.Apply("ESTORNO IOF")
	assert.Equal(t, "", got)
	assert.Equal(t, Ignored, outcome)
}

func TestRulesEmpty(t *testing.T) {
	assert.True(t, Rules{}.Empty())
	assert.False(t, Rules{IgnoreWords: []string{"x"}}.Empty())
	got, outcome := Rules{}.Apply("anything")
	assert.Equal(t, "anything", got)
	assert.Equal(t, Kept, outcome)
}

func TestRulesValidate(t *testing.T) {
	assert.NoError(t, Rules{}.Validate())
	assert.NoError(t, Rules{ReplaceWords: []ReplaceWordRule{{Before: "", After: ""}}}.Validate())
	assert.NoError(t, Rules{ReplaceWords: []ReplaceWordRule{{Before: "Uber *Trip", After: "Uber"}}}.Validate())
	assert.ErrorIs(t, Rules{ReplaceWords: []ReplaceWordRule{{Before: "Uber", After: ""}}}.Validate(), ErrEmptyReplacement)
	assert.ErrorIs(t, Rules{ReplaceWords: []ReplaceWordRule{{Before: "Uber", After: "\t "}}}.Validate(), ErrEmptyReplacement)
}
